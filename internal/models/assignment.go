package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionDescriptor describes one question of a paper as returned by structure extraction.
type QuestionDescriptor struct {
	QuestionNumber string            `json:"question_number" validate:"required"`
	MaxMarks       float64           `json:"max_marks" validate:"gte=0"`
	Text           string            `json:"text,omitempty"`
	Type           string            `json:"type,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Structure is the ordered list of questions derived from a question paper.
type Structure []QuestionDescriptor

// MaxMarks sums the maximum marks across every question.
func (s Structure) MaxMarks() float64 {
	var total float64
	for _, q := range s {
		total += q.MaxMarks
	}
	return total
}

// Assignment is created by a teacher from a question paper and a solution document.
type Assignment struct {
	ID                  string                                  `gorm:"primaryKey;size:64" json:"id"`
	Title               string                                  `gorm:"size:255;not null" json:"title" validate:"required"`
	Subject             string                                  `gorm:"size:255" json:"subject"`
	Description         string                                  `gorm:"type:text" json:"description"`
	Deadline            *time.Time                              `json:"deadline"`
	TeacherID           string                                  `gorm:"size:64;index;not null" json:"teacher_id" validate:"required"`
	QuestionDocumentRef string                                  `gorm:"size:512;not null" json:"question_document_ref" validate:"required"`
	SolutionDocumentRef string                                  `gorm:"size:512;not null" json:"solution_document_ref" validate:"required"`
	Structure           datatypes.JSONSlice[QuestionDescriptor] `json:"structure" validate:"dive"`
	CreatedAt           time.Time                               `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time                               `json:"updated_at"`
}

// Questions returns the stored structure as a Structure value.
func (a Assignment) Questions() Structure {
	return Structure(a.Structure)
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	if a.Deadline == nil {
		return false
	}
	return reference.After(*a.Deadline)
}

// IsOwnedBy reports whether the given teacher created the assignment.
func (a Assignment) IsOwnedBy(teacherID string) bool {
	return teacherID != "" && a.TeacherID == teacherID
}
