package ai

import (
	"context"
	"errors"

	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

// ErrNotConfigured is returned by Unavailable for every stage.
var ErrNotConfigured = errors.New("ai provider is not configured")

// Unavailable fills every pipeline stage when no provider credentials are set,
// so the API still boots and serves stored records.
type Unavailable struct{}

func (Unavailable) ExtractStructure(context.Context, []byte) (models.Structure, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) BuildKey(context.Context, models.Structure, []byte) (grading.AnswerKey, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) ExtractAnswers(context.Context, models.Structure, []byte) (grading.CandidateAnswers, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Grade(context.Context, grading.CandidateAnswers, grading.AnswerKey) (grading.Outcome, error) {
	return grading.Outcome{}, ErrNotConfigured
}

// UnavailableEngines returns Engines backed entirely by Unavailable.
func UnavailableEngines() grading.Engines {
	return grading.Engines{
		Structure: Unavailable{},
		Keys:      Unavailable{},
		Answers:   Unavailable{},
		Grader:    Unavailable{},
	}
}
