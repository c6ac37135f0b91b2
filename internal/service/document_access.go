package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/repository"
)

// DocumentAccessService serves stored documents to the callers allowed to read them.
type DocumentAccessService interface {
	Open(ctx context.Context, ref string, viewer Viewer) (dto.Document, error)
}

type documentAccessService struct {
	documents   DocumentService
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	papers      repository.PaperRepository
	logger      zerolog.Logger
}

// NewDocumentAccessService resolves the record that owns a document before serving it.
func NewDocumentAccessService(documents DocumentService, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, papers repository.PaperRepository, logger zerolog.Logger) DocumentAccessService {
	return &documentAccessService{
		documents:   documents,
		assignments: assignments,
		submissions: submissions,
		papers:      papers,
		logger:      logger.With().Str("component", "document_access").Logger(),
	}
}

// Open returns a document when the viewer may read the record carrying it.
// Students read question papers and their own scripts; teachers read the
// documents of the assignments and paper checks they own. References no
// record carries are reported as not found.
func (s *documentAccessService) Open(ctx context.Context, ref string, viewer Viewer) (dto.Document, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return dto.Document{}, validationError(errors.New("document ref is required"))
	}
	if !viewer.IsFaculty() && !viewer.IsStudent() {
		return dto.Document{}, ErrAccessDenied
	}

	if err := s.authorize(ctx, ref, viewer); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			s.logger.Warn().Str("ref", ref).Str("user_id", viewer.UserID).Str("role", viewer.Role).Msg("document access denied")
		}
		return dto.Document{}, err
	}

	return s.documents.Open(ctx, ref)
}

func (s *documentAccessService) authorize(ctx context.Context, ref string, viewer Viewer) error {
	assignments, err := s.assignments.List(ctx, repository.AssignmentFilter{DocumentRef: &ref})
	if err != nil {
		return err
	}
	if len(assignments) > 0 {
		assignment := assignments[0]
		switch {
		case viewer.IsFaculty() && assignment.IsOwnedBy(viewer.UserID):
			return nil
		case viewer.IsStudent() && assignment.QuestionDocumentRef == ref:
			return nil
		default:
			return ErrAccessDenied
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{DocumentRef: &ref})
	if err != nil {
		return err
	}
	if len(submissions) > 0 {
		submission := submissions[0]
		if viewer.IsStudent() {
			if submission.StudentID != viewer.UserID {
				return ErrAccessDenied
			}
			return nil
		}

		assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccessDenied
			}
			return err
		}
		if !assignment.IsOwnedBy(viewer.UserID) {
			return ErrAccessDenied
		}
		return nil
	}

	papers, err := s.papers.List(ctx, repository.PaperFilter{DocumentRef: &ref})
	if err != nil {
		return err
	}
	if len(papers) > 0 {
		if !viewer.IsFaculty() || !papers[0].IsOwnedBy(viewer.UserID) {
			return ErrAccessDenied
		}
		return nil
	}

	return ErrDocumentNotFound
}
