package models

import (
	"time"

	"gorm.io/datatypes"
)

// Paper is a standalone paper check run by a teacher outside the assignment workflow.
type Paper struct {
	ID                  string                     `gorm:"primaryKey;size:64" json:"id"`
	TeacherID           string                     `gorm:"size:64;index;not null" json:"teacher_id" validate:"required"`
	QuestionDocumentRef string                     `gorm:"size:512;not null" json:"question_document_ref" validate:"required"`
	AnswerDocumentRef   string                     `gorm:"size:512;not null" json:"answer_document_ref" validate:"required"`
	Result              datatypes.JSONType[Result] `json:"result"`
	Notes               string                     `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time                  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// IsOwnedBy reports whether the paper check belongs to the given teacher.
func (p Paper) IsOwnedBy(teacherID string) bool {
	return teacherID != "" && p.TeacherID == teacherID
}
