package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader-api/internal/grading"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIGraderGrade(t *testing.T) {
	server := newChatServer(t, `{"total_score":4,"remarks":"good","results":[{"question_number":"1","score":4,"feedback":"minor slip"}]}`)

	grader, err := NewOpenAIGrader(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	key := grading.AnswerKey{{QuestionNumber: "1", ExpectedAnswer: "42", MaxMarks: 5}}
	answers := grading.CandidateAnswers{{QuestionNumber: "1", Answer: "41"}}

	outcome, err := grader.Grade(context.Background(), answers, key)
	require.NoError(t, err)
	require.Equal(t, 4.0, outcome.TotalScore)
	require.Equal(t, "good", outcome.Remarks)
	require.Len(t, outcome.Results, 1)
	require.Equal(t, "41", outcome.Results[0].StudentAnswer)
}

func TestOpenAIGraderRejectsMalformedReply(t *testing.T) {
	server := newChatServer(t, `{"verdict":"pass"}`)

	grader, err := NewOpenAIGrader(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = grader.Grade(context.Background(), nil, grading.AnswerKey{{QuestionNumber: "1", MaxMarks: 5}})
	require.Error(t, err)
}

func TestNewOpenAIGraderRequiresKey(t *testing.T) {
	_, err := NewOpenAIGrader(OpenAIConfig{})
	require.Error(t, err)
}
