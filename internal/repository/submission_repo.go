package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *string
	StudentID    *string
	// AssignmentIDs restricts results to any of the listed assignments; a
	// non-nil empty slice matches nothing.
	AssignmentIDs []string
	Status        *string
	DocumentRef   *string
}

// SubmissionPatch lists the submission fields a reviewer may change.
type SubmissionPatch struct {
	Status         *string
	ReviewFeedback *string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, id string, patch SubmissionPatch) (models.Submission, error)
}

type submissionRepository struct {
	db   *gorm.DB
	opts Options
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB, opts Options) SubmissionRepository {
	return &submissionRepository{db: db, opts: opts.withDefaults()}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	submissions := make([]models.Submission, 0)
	if filter.AssignmentIDs != nil && len(filter.AssignmentIDs) == 0 {
		return submissions, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if len(filter.AssignmentIDs) > 0 {
		query = query.Where("assignment_id IN ?", filter.AssignmentIDs)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.DocumentRef != nil {
		query = query.Where("submission_document_ref = ?", *filter.DocumentRef)
	}

	if err := query.Order("submitted_at ASC").Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	lock := r.opts.Locks.For(CollectionSubmissions)
	lock.Lock()
	defer lock.Unlock()

	now := r.opts.Now()
	submission.ID = r.opts.IDs(submissionIDPrefix)
	submission.SubmittedAt = now
	submission.UpdatedAt = now

	if err := r.opts.Validator.Struct(submission); err != nil {
		return fmt.Errorf("invalid submission record: %w", err)
	}

	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, id string, patch SubmissionPatch) (models.Submission, error) {
	lock := r.opts.Locks.For(CollectionSubmissions)
	lock.Lock()
	defer lock.Unlock()

	var updated models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}

		if patch.Status != nil {
			updated.Status = *patch.Status
		}
		if patch.ReviewFeedback != nil {
			updated.ReviewFeedback = *patch.ReviewFeedback
		}
		updated.UpdatedAt = r.opts.Now()

		if err := r.opts.Validator.Struct(updated); err != nil {
			return fmt.Errorf("invalid submission record: %w", err)
		}

		return tx.Model(&models.Submission{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":          updated.Status,
			"review_feedback": updated.ReviewFeedback,
			"updated_at":      updated.UpdatedAt,
		}).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return updated, nil
}
