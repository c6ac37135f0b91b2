package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/repository"
)

// AssignmentService exposes assignment read and metadata update use cases.
type AssignmentService interface {
	List(ctx context.Context, viewer Viewer) ([]dto.AssignmentResponse, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id string, viewer Viewer) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id string, viewer Viewer, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

// List returns every assignment. Solution references are only shown to the owning teacher.
func (s *assignmentService) List(ctx context.Context, viewer Viewer) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.List(ctx, repository.AssignmentFilter{})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, present(assignment, viewer))
	}
	return responses, nil
}

func (s *assignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.List(ctx, repository.AssignmentFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, id string, viewer Viewer) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}

		return dto.AssignmentResponse{}, err
	}

	return present(assignment, viewer), nil
}

// Update changes assignment metadata. The question structure is never touched.
func (s *assignmentService) Update(ctx context.Context, id string, viewer Viewer, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationError(err)
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !assignment.IsOwnedBy(viewer.UserID) {
		return dto.AssignmentResponse{}, ErrAccessDenied
	}

	patch := repository.AssignmentPatch{
		Title:       s.cleanPtr(payload.Title),
		Subject:     s.cleanPtr(payload.Subject),
		Description: s.cleanPtr(payload.Description),
	}
	if patch.Title != nil && *patch.Title == "" {
		return dto.AssignmentResponse{}, grading.Validationf("title must not be empty")
	}

	if payload.Deadline != nil {
		deadline, err := parseDeadline(*payload.Deadline)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if deadline == nil {
			return dto.AssignmentResponse{}, grading.Validationf("deadline must not be empty")
		}
		patch.Deadline = deadline
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Str("assignment_id", id).Msg("assignment updated")

	return dto.NewAssignmentResponse(updated), nil
}

func (s *assignmentService) cleanPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := plainText(s.sanitizer, *value)
	return &cleaned
}


func present(assignment models.Assignment, viewer Viewer) dto.AssignmentResponse {
	response := dto.NewAssignmentResponse(assignment)
	if viewer.IsFaculty() && assignment.IsOwnedBy(viewer.UserID) {
		return response
	}
	return response.WithoutSolution()
}
