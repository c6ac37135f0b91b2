package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

const (
	geminiProvider = "gemini"
	pdfMIMEType    = "application/pdf"
)

// GeminiConfig defines configuration options for the Gemini engine.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float32
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number between failed attempts.
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// GeminiEngine implements every grading stage on top of Gemini. PDFs are
// sent inline as blobs and replies are requested in JSON mode.
type GeminiEngine struct {
	client *genai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiEngine opens a Gemini client with the provided configuration.
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiEngine{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_engine").Logger(),
	}, nil
}

// Close releases the underlying client.
func (e *GeminiEngine) Close() error {
	return e.client.Close()
}

// Engines exposes the engine as every pipeline stage.
func (e *GeminiEngine) Engines() grading.Engines {
	return grading.Engines{Structure: e, Keys: e, Answers: e, Grader: e}
}

func (e *GeminiEngine) ExtractStructure(ctx context.Context, questionDoc []byte) (models.Structure, error) {
	content, err := e.generate(ctx, "structure", structureInstruction,
		genai.Text(structurePrompt()),
		&genai.Blob{MIMEType: pdfMIMEType, Data: questionDoc},
	)
	if err != nil {
		return nil, err
	}
	return parseStructure(content)
}

func (e *GeminiEngine) BuildKey(ctx context.Context, structure models.Structure, solutionDoc []byte) (grading.AnswerKey, error) {
	content, err := e.generate(ctx, "key", keyInstruction,
		genai.Text(keyPrompt(structure)),
		&genai.Blob{MIMEType: pdfMIMEType, Data: solutionDoc},
	)
	if err != nil {
		return nil, err
	}
	return parseKey(content)
}

func (e *GeminiEngine) ExtractAnswers(ctx context.Context, structure models.Structure, candidateDoc []byte) (grading.CandidateAnswers, error) {
	content, err := e.generate(ctx, "answers", answersInstruction,
		genai.Text(answersPrompt(structure)),
		&genai.Blob{MIMEType: pdfMIMEType, Data: candidateDoc},
	)
	if err != nil {
		return nil, err
	}
	return parseAnswers(content)
}

func (e *GeminiEngine) Grade(ctx context.Context, answers grading.CandidateAnswers, key grading.AnswerKey) (grading.Outcome, error) {
	content, err := e.generate(ctx, "grade", gradeInstruction, genai.Text(gradePrompt(answers, key)))
	if err != nil {
		return grading.Outcome{}, err
	}
	return parseOutcome(content, answers, key)
}

func (e *GeminiEngine) generate(parent context.Context, stage, instruction string, parts ...genai.Part) (string, error) {
	ctx, span := e.tracer.Start(parent, "gemini."+stage, trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.String("stage", stage),
	))
	defer span.End()

	model := e.client.GenerativeModel(e.cfg.Model)
	temperature := e.cfg.Temperature
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}

	start := time.Now()
	content, err := e.generateWithRetry(ctx, model, stage, parts)
	stageDuration.WithLabelValues(geminiProvider, stage).Observe(time.Since(start).Seconds())
	if err != nil {
		stageFailures.WithLabelValues(geminiProvider, stage).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("gemini %s: %w", stage, err)
	}

	return content, nil
}

func (e *GeminiEngine) generateWithRetry(ctx context.Context, model *genai.GenerativeModel, stage string, parts []genai.Part) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		resp, err := model.GenerateContent(ctx, parts...)
		if err == nil {
			text := firstText(resp)
			if text == "" {
				return "", errors.New("empty response")
			}
			return text, nil
		}

		lastErr = err
		e.logger.Warn().Err(err).Str("stage", stage).Int("attempt", attempt).Msg("gemini request failed")
		if attempt == e.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * e.cfg.RetryDelay):
		}
	}
	return "", lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
