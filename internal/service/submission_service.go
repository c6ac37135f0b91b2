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

// SubmissionService exposes role-scoped submission queries and teacher review.
type SubmissionService interface {
	List(ctx context.Context, viewer Viewer) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id string, viewer Viewer) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID string, viewer Viewer) ([]dto.SubmissionResponse, error)
	Review(ctx context.Context, id string, viewer Viewer, payload dto.SubmissionReviewRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// List returns a student's own submissions, or every submission to the
// assignments a teacher owns.
func (s *submissionService) List(ctx context.Context, viewer Viewer) ([]dto.SubmissionResponse, error) {
	var filter repository.SubmissionFilter
	switch {
	case viewer.IsStudent():
		filter.StudentID = &viewer.UserID
	case viewer.IsFaculty():
		owned, err := s.assignments.List(ctx, repository.AssignmentFilter{TeacherID: &viewer.UserID})
		if err != nil {
			return nil, err
		}
		filter.AssignmentIDs = make([]string, 0, len(owned))
		for _, assignment := range owned {
			filter.AssignmentIDs = append(filter.AssignmentIDs, assignment.ID)
		}
	default:
		return nil, ErrAccessDenied
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id string, viewer Viewer) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.authorize(ctx, submission, viewer); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID string, viewer Viewer) ([]dto.SubmissionResponse, error) {
	if _, err := s.ownedAssignment(ctx, assignmentID, viewer); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Review marks a submission reviewed by the owning teacher, optionally with feedback.
func (s *submissionService) Review(ctx context.Context, id string, viewer Viewer, payload dto.SubmissionReviewRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, validationError(err)
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.ownedAssignment(ctx, submission.AssignmentID, viewer); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return dto.SubmissionResponse{}, ErrAccessDenied
		}
		return dto.SubmissionResponse{}, err
	}

	status := models.SubmissionStatusReviewed
	feedback := plainText(s.sanitizer, payload.Feedback)
	updated, err := s.submissions.Update(ctx, id, repository.SubmissionPatch{
		Status:         &status,
		ReviewFeedback: &feedback,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Str("submission_id", id).Str("reviewer_id", viewer.UserID).Msg("submission reviewed")

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) load(ctx context.Context, id string) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) authorize(ctx context.Context, submission models.Submission, viewer Viewer) error {
	switch {
	case viewer.IsStudent():
		if submission.StudentID != viewer.UserID {
			return ErrAccessDenied
		}
		return nil
	case viewer.IsFaculty():
		_, err := s.ownedAssignment(ctx, submission.AssignmentID, viewer)
		if errors.Is(err, ErrAssignmentNotFound) {
			return ErrAccessDenied
		}
		return err
	default:
		return ErrAccessDenied
	}
}

func (s *submissionService) ownedAssignment(ctx context.Context, assignmentID string, viewer Viewer) (models.Assignment, error) {
	if !viewer.IsFaculty() {
		return models.Assignment{}, ErrAccessDenied
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !assignment.IsOwnedBy(viewer.UserID) {
		return models.Assignment{}, ErrAccessDenied
	}
	return assignment, nil
}
