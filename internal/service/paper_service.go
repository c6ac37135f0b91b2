package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/repository"
)

// PaperService exposes a teacher's standalone paper checks.
type PaperService interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]dto.PaperResponse, error)
	Get(ctx context.Context, id string, viewer Viewer) (dto.PaperResponse, error)
	Annotate(ctx context.Context, id string, viewer Viewer, payload dto.PaperNotesRequest) (dto.PaperResponse, error)
}

type paperService struct {
	repo      repository.PaperRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewPaperService builds a paper query service.
func NewPaperService(repo repository.PaperRepository, validate *validator.Validate, logger zerolog.Logger) PaperService {
	return &paperService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "paper_service").Logger(),
	}
}

func (s *paperService) ListByTeacher(ctx context.Context, teacherID string) ([]dto.PaperResponse, error) {
	papers, err := s.repo.List(ctx, repository.PaperFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, err
	}
	return dto.NewPaperResponseSlice(papers), nil
}

func (s *paperService) Get(ctx context.Context, id string, viewer Viewer) (dto.PaperResponse, error) {
	paper, err := s.owned(ctx, id, viewer)
	if err != nil {
		return dto.PaperResponse{}, err
	}
	return dto.NewPaperResponse(paper), nil
}

func (s *paperService) Annotate(ctx context.Context, id string, viewer Viewer, payload dto.PaperNotesRequest) (dto.PaperResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PaperResponse{}, validationError(err)
	}

	if _, err := s.owned(ctx, id, viewer); err != nil {
		return dto.PaperResponse{}, err
	}

	notes := plainText(s.sanitizer, payload.Notes)
	updated, err := s.repo.Update(ctx, id, repository.PaperPatch{Notes: &notes})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaperResponse{}, ErrPaperNotFound
		}
		return dto.PaperResponse{}, err
	}

	s.logger.Info().Str("paper_id", id).Msg("paper annotated")
	return dto.NewPaperResponse(updated), nil
}

func (s *paperService) owned(ctx context.Context, id string, viewer Viewer) (models.Paper, error) {
	paper, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Paper{}, ErrPaperNotFound
		}
		return models.Paper{}, err
	}

	if !paper.IsOwnedBy(viewer.UserID) {
		return models.Paper{}, ErrAccessDenied
	}
	return paper, nil
}
