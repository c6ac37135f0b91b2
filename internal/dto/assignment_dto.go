package dto

import (
	"time"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// AssignmentCreateRequest describes the metadata fields sent with the question and solution PDFs.
type AssignmentCreateRequest struct {
	Title       string `form:"title" json:"title" validate:"required,max=255"`
	Subject     string `form:"subject" json:"subject" validate:"omitempty,max=255"`
	Description string `form:"description" json:"description" validate:"omitempty,max=5000"`
	Deadline    string `form:"deadline" json:"deadline"`
}

// AssignmentUpdateRequest describes the payload for updating assignment metadata.
type AssignmentUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Subject     *string `json:"subject" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Deadline    *string `json:"deadline"`
}

// QuestionResponse serializes one question of an assignment structure.
type QuestionResponse struct {
	QuestionNumber string  `json:"question_number"`
	MaxMarks       float64 `json:"max_marks"`
	Text           string  `json:"text,omitempty"`
	Type           string  `json:"type,omitempty"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                  string             `json:"id"`
	Title               string             `json:"title"`
	Subject             string             `json:"subject"`
	Description         string             `json:"description"`
	Deadline            *time.Time         `json:"deadline"`
	TeacherID           string             `json:"teacher_id"`
	QuestionDocumentRef string             `json:"question_document_ref"`
	SolutionDocumentRef string             `json:"solution_document_ref,omitempty"`
	MaxMarks            float64            `json:"max_marks"`
	Structure           []QuestionResponse `json:"structure"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	structure := model.Questions()
	questions := make([]QuestionResponse, 0, len(structure))
	for _, q := range structure {
		questions = append(questions, QuestionResponse{
			QuestionNumber: q.QuestionNumber,
			MaxMarks:       q.MaxMarks,
			Text:           q.Text,
			Type:           q.Type,
		})
	}

	return AssignmentResponse{
		ID:                  model.ID,
		Title:               model.Title,
		Subject:             model.Subject,
		Description:         model.Description,
		Deadline:            model.Deadline,
		TeacherID:           model.TeacherID,
		QuestionDocumentRef: model.QuestionDocumentRef,
		SolutionDocumentRef: model.SolutionDocumentRef,
		MaxMarks:            structure.MaxMarks(),
		Structure:           questions,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// WithoutSolution hides the solution document from callers that do not own the assignment.
func (r AssignmentResponse) WithoutSolution() AssignmentResponse {
	r.SolutionDocumentRef = ""
	return r
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
