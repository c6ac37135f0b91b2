package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// PaperFilter narrows paper check listings.
type PaperFilter struct {
	TeacherID *string
	// DocumentRef matches either the question or the answer document.
	DocumentRef *string
}

// PaperPatch lists the paper fields that may change after creation.
type PaperPatch struct {
	Notes *string
}

// PaperRepository defines persistence operations for standalone paper checks.
type PaperRepository interface {
	List(ctx context.Context, filter PaperFilter) ([]models.Paper, error)
	GetByID(ctx context.Context, id string) (models.Paper, error)
	Create(ctx context.Context, paper *models.Paper) error
	Update(ctx context.Context, id string, patch PaperPatch) (models.Paper, error)
}

type paperRepository struct {
	db   *gorm.DB
	opts Options
}

// NewPaperRepository instantiates a GORM-backed repository.
func NewPaperRepository(db *gorm.DB, opts Options) PaperRepository {
	return &paperRepository{db: db, opts: opts.withDefaults()}
}

func (r *paperRepository) List(ctx context.Context, filter PaperFilter) ([]models.Paper, error) {
	query := r.db.WithContext(ctx).Model(&models.Paper{})
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.DocumentRef != nil {
		query = query.Where("question_document_ref = ? OR answer_document_ref = ?", *filter.DocumentRef, *filter.DocumentRef)
	}

	papers := make([]models.Paper, 0)
	if err := query.Order("created_at ASC").Order("id ASC").Find(&papers).Error; err != nil {
		return nil, err
	}

	return papers, nil
}

func (r *paperRepository) GetByID(ctx context.Context, id string) (models.Paper, error) {
	var paper models.Paper
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&paper).Error; err != nil {
		return models.Paper{}, err
	}

	return paper, nil
}

func (r *paperRepository) Create(ctx context.Context, paper *models.Paper) error {
	lock := r.opts.Locks.For(CollectionPapers)
	lock.Lock()
	defer lock.Unlock()

	now := r.opts.Now()
	paper.ID = r.opts.IDs(paperIDPrefix)
	paper.CreatedAt = now
	paper.UpdatedAt = now

	if err := r.opts.Validator.Struct(paper); err != nil {
		return fmt.Errorf("invalid paper record: %w", err)
	}

	return r.db.WithContext(ctx).Create(paper).Error
}

func (r *paperRepository) Update(ctx context.Context, id string, patch PaperPatch) (models.Paper, error) {
	lock := r.opts.Locks.For(CollectionPapers)
	lock.Lock()
	defer lock.Unlock()

	var updated models.Paper
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}

		if patch.Notes != nil {
			updated.Notes = *patch.Notes
		}
		updated.UpdatedAt = r.opts.Now()

		return tx.Model(&models.Paper{}).Where("id = ?", id).Updates(map[string]interface{}{
			"notes":      updated.Notes,
			"updated_at": updated.UpdatedAt,
		}).Error
	})
	if err != nil {
		return models.Paper{}, err
	}

	return updated, nil
}
