package dto

import (
	"time"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// SubmissionCreateRequest describes the multipart fields sent with a student answer PDF.
type SubmissionCreateRequest struct {
	AssignmentID string `form:"assignment_id" json:"assignment_id" validate:"required,max=64"`
}

// SubmissionReviewRequest lets the owning teacher confirm or annotate an AI result.
type SubmissionReviewRequest struct {
	Feedback string `json:"feedback" validate:"omitempty,max=5000"`
}

// QuestionResultResponse serializes the per-question grading outcome.
type QuestionResultResponse struct {
	QuestionNumber string  `json:"question_number"`
	Score          float64 `json:"score"`
	MaxMarks       float64 `json:"max_marks"`
	Feedback       string  `json:"feedback,omitempty"`
	StudentAnswer  string  `json:"student_answer,omitempty"`
	ExpectedAnswer string  `json:"expected_answer,omitempty"`
}

// ResultResponse serializes a scored outcome.
type ResultResponse struct {
	TotalMarks           float64                  `json:"total_marks"`
	MaxMarks             float64                  `json:"max_marks"`
	Percentage           float64                  `json:"percentage"`
	Grade                string                   `json:"grade"`
	PlagiarismPercentage *float64                 `json:"plagiarism_percentage,omitempty"`
	Feedback             string                   `json:"feedback"`
	DetailedResults      []QuestionResultResponse `json:"detailed_results"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                    string         `json:"id"`
	AssignmentID          string         `json:"assignment_id"`
	StudentID             string         `json:"student_id"`
	SubmissionDocumentRef string         `json:"submission_document_ref"`
	Status                string         `json:"status"`
	AIResult              ResultResponse `json:"ai_result"`
	ReviewFeedback        string         `json:"review_feedback,omitempty"`
	Late                  bool           `json:"late"`
	SubmittedAt           time.Time      `json:"submitted_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// NewResultResponse converts a stored result into a DTO.
func NewResultResponse(result models.Result) ResultResponse {
	details := make([]QuestionResultResponse, 0, len(result.DetailedResults))
	for _, r := range result.DetailedResults {
		details = append(details, QuestionResultResponse{
			QuestionNumber: r.QuestionNumber,
			Score:          r.Score,
			MaxMarks:       r.MaxMarks,
			Feedback:       r.Feedback,
			StudentAnswer:  r.StudentAnswer,
			ExpectedAnswer: r.ExpectedAnswer,
		})
	}

	return ResultResponse{
		TotalMarks:      result.TotalMarks,
		MaxMarks:        result.MaxMarks,
		Percentage:      result.Percentage,
		Grade:           result.Grade,
		Feedback:        result.Feedback,
		DetailedResults: details,
	}
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	stored := model.Result()
	result := NewResultResponse(stored.Result)
	plagiarism := stored.PlagiarismPercentage
	result.PlagiarismPercentage = &plagiarism

	return SubmissionResponse{
		ID:                    model.ID,
		AssignmentID:          model.AssignmentID,
		StudentID:             model.StudentID,
		SubmissionDocumentRef: model.SubmissionDocumentRef,
		Status:                model.Status,
		AIResult:              result,
		ReviewFeedback:        model.ReviewFeedback,
		Late:                  model.Late,
		SubmittedAt:           model.SubmittedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of submissions into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewSubmissionResponse(item))
	}
	return responses
}
