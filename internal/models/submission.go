package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionResult is the per-question outcome of grading.
type QuestionResult struct {
	QuestionNumber string  `json:"question_number"`
	Score          float64 `json:"score"`
	MaxMarks       float64 `json:"max_marks"`
	Feedback       string  `json:"feedback,omitempty"`
	StudentAnswer  string  `json:"student_answer,omitempty"`
	ExpectedAnswer string  `json:"expected_answer,omitempty"`
}

// Result is the scored outcome shared by submissions and paper checks.
type Result struct {
	TotalMarks      float64          `json:"total_marks"`
	MaxMarks        float64          `json:"max_marks"`
	Percentage      float64          `json:"percentage"`
	Grade           string           `json:"grade"`
	Feedback        string           `json:"feedback"`
	DetailedResults []QuestionResult `json:"detailed_results"`
}

// SubmissionResult extends Result with the plagiarism estimate recorded on submissions.
type SubmissionResult struct {
	Result
	PlagiarismPercentage float64 `json:"plagiarism_percentage"`
}

// Submission is a graded student answer script for an assignment.
type Submission struct {
	ID                    string                               `gorm:"primaryKey;size:64" json:"id"`
	AssignmentID          string                               `gorm:"size:64;index;not null" json:"assignment_id" validate:"required"`
	StudentID             string                               `gorm:"size:64;index;not null" json:"student_id" validate:"required"`
	SubmissionDocumentRef string                               `gorm:"size:512;not null" json:"submission_document_ref" validate:"required"`
	AIResult              datatypes.JSONType[SubmissionResult] `json:"ai_result"`
	Status                string                               `gorm:"size:32;not null" json:"status" validate:"required,oneof=graded reviewed"`
	ReviewFeedback        string                               `gorm:"type:text" json:"review_feedback"`
	Late                  bool                                 `gorm:"not null;default:false" json:"late"`
	SubmittedAt           time.Time                            `gorm:"index" json:"submitted_at"`
	UpdatedAt             time.Time                            `json:"updated_at"`
}

const (
	// SubmissionStatusGraded indicates the pipeline produced the result.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusReviewed indicates a teacher has reviewed the AI result.
	SubmissionStatusReviewed = "reviewed"
)

// Result returns the decoded AI result payload.
func (s Submission) Result() SubmissionResult {
	return s.AIResult.Data()
}
