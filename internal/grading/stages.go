// Package grading defines the contracts of the four grading pipeline stages
// and the pure scoring rules shared by every caller of the pipeline.
package grading

import (
	"context"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// KeyEntry is the authoritative answer for one question.
type KeyEntry struct {
	QuestionNumber string  `json:"question_number"`
	ExpectedAnswer string  `json:"expected_answer"`
	MaxMarks       float64 `json:"max_marks"`
	Rubric         string  `json:"rubric,omitempty"`
}

// AnswerKey is aligned one-to-one with a structure.
type AnswerKey []KeyEntry

// CandidateAnswer is the answer a candidate wrote for one question.
type CandidateAnswer struct {
	QuestionNumber string `json:"question_number"`
	Answer         string `json:"answer"`
	Missing        bool   `json:"missing,omitempty"`
}

// CandidateAnswers is aligned one-to-one with a structure.
type CandidateAnswers []CandidateAnswer

// Outcome is what a grader returns for one script.
type Outcome struct {
	TotalScore float64                 `json:"total_score"`
	Remarks    string                  `json:"remarks"`
	Results    []models.QuestionResult `json:"results"`
}

// StructureExtractor turns a question paper into an ordered list of questions.
type StructureExtractor interface {
	ExtractStructure(ctx context.Context, questionDoc []byte) (models.Structure, error)
}

// KeyBuilder derives the answer key from a solution document.
type KeyBuilder interface {
	BuildKey(ctx context.Context, structure models.Structure, solutionDoc []byte) (AnswerKey, error)
}

// AnswerExtractor reads candidate answers from an answer script.
type AnswerExtractor interface {
	ExtractAnswers(ctx context.Context, structure models.Structure, candidateDoc []byte) (CandidateAnswers, error)
}

// Grader scores candidate answers against a key.
type Grader interface {
	Grade(ctx context.Context, answers CandidateAnswers, key AnswerKey) (Outcome, error)
}

// Engines groups the stage implementations used by the pipeline.
type Engines struct {
	Structure StructureExtractor
	Keys      KeyBuilder
	Answers   AnswerExtractor
	Grader    Grader
}
