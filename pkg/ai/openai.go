package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader-api/internal/grading"
)

const openAIProvider = "openai"

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	BaseURL     string
	Logger      zerolog.Logger
}

// OpenAIGrader implements the grading stage against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGrader{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Grade sends the key and answers to OpenAI and parses the scored response.
func (g *OpenAIGrader) Grade(parent context.Context, answers grading.CandidateAnswers, key grading.AnswerKey) (grading.Outcome, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("questions", len(key)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: gradeInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: gradePrompt(answers, key),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	stageDuration.WithLabelValues(openAIProvider, "grade").Observe(time.Since(start).Seconds())
	if err != nil {
		return grading.Outcome{}, g.fail(span, fmt.Errorf("openai grade: %w", err))
	}

	if len(resp.Choices) == 0 {
		return grading.Outcome{}, g.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	outcome, err := parseOutcome(strings.TrimSpace(resp.Choices[0].Message.Content), answers, key)
	if err != nil {
		return grading.Outcome{}, g.fail(span, err)
	}

	g.logger.Debug().Int("prompt_tokens", resp.Usage.PromptTokens).Int("completion_tokens", resp.Usage.CompletionTokens).Msg("openai grading completed")
	return outcome, nil
}

func (g *OpenAIGrader) fail(span trace.Span, err error) error {
	stageFailures.WithLabelValues(openAIProvider, "grade").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
