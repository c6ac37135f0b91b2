package dto

import (
	"time"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// PaperResponse is returned for standalone paper checks.
type PaperResponse struct {
	ID                  string         `json:"id"`
	TeacherID           string         `json:"teacher_id"`
	QuestionDocumentRef string         `json:"question_document_ref"`
	AnswerDocumentRef   string         `json:"answer_document_ref"`
	Result              ResultResponse `json:"result"`
	Notes               string         `json:"notes,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NewPaperResponse converts a Paper model into a DTO.
func NewPaperResponse(model models.Paper) PaperResponse {
	return PaperResponse{
		ID:                  model.ID,
		TeacherID:           model.TeacherID,
		QuestionDocumentRef: model.QuestionDocumentRef,
		AnswerDocumentRef:   model.AnswerDocumentRef,
		Result:              NewResultResponse(model.Result.Data()),
		Notes:               model.Notes,
		CreatedAt:           model.CreatedAt,
	}
}

// NewPaperResponseSlice converts a slice of papers into DTOs.
func NewPaperResponseSlice(items []models.Paper) []PaperResponse {
	responses := make([]PaperResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewPaperResponse(item))
	}
	return responses
}

// PaperNotesRequest sets the teacher's notes on a paper check.
type PaperNotesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}
