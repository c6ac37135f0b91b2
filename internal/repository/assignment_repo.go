package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	TeacherID *string
	// DocumentRef matches either the question or the solution document.
	DocumentRef *string
}

// AssignmentPatch lists the assignment fields that may change after creation.
// The question structure is deliberately absent.
type AssignmentPatch struct {
	Title       *string
	Subject     *string
	Description *string
	Deadline    *time.Time
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	GetByID(ctx context.Context, id string) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, id string, patch AssignmentPatch) (models.Assignment, error)
}

type assignmentRepository struct {
	db   *gorm.DB
	opts Options
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB, opts Options) AssignmentRepository {
	return &assignmentRepository{db: db, opts: opts.withDefaults()}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.DocumentRef != nil {
		query = query.Where("question_document_ref = ? OR solution_document_ref = ?", *filter.DocumentRef, *filter.DocumentRef)
	}

	assignments := make([]models.Assignment, 0)
	if err := query.Order("created_at ASC").Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	lock := r.opts.Locks.For(CollectionAssignments)
	lock.Lock()
	defer lock.Unlock()

	now := r.opts.Now()
	assignment.ID = r.opts.IDs(assignmentIDPrefix)
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	if err := r.opts.Validator.Struct(assignment); err != nil {
		return fmt.Errorf("invalid assignment record: %w", err)
	}

	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, id string, patch AssignmentPatch) (models.Assignment, error) {
	lock := r.opts.Locks.For(CollectionAssignments)
	lock.Lock()
	defer lock.Unlock()

	var updated models.Assignment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}

		if patch.Title != nil {
			updated.Title = *patch.Title
		}
		if patch.Subject != nil {
			updated.Subject = *patch.Subject
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		if patch.Deadline != nil {
			deadline := *patch.Deadline
			updated.Deadline = &deadline
		}
		updated.UpdatedAt = r.opts.Now()

		if err := r.opts.Validator.Struct(updated); err != nil {
			return fmt.Errorf("invalid assignment record: %w", err)
		}

		return tx.Model(&models.Assignment{}).Where("id = ?", id).Updates(map[string]interface{}{
			"title":       updated.Title,
			"subject":     updated.Subject,
			"description": updated.Description,
			"deadline":    updated.Deadline,
			"updated_at":  updated.UpdatedAt,
		}).Error
	})
	if err != nil {
		return models.Assignment{}, err
	}

	return updated, nil
}
