package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/observability"
	"github.com/noah-isme/gema-grader-api/internal/repository"
)

const defaultStageTimeout = 2 * time.Minute

// GradingService runs the grading pipeline and persists its results.
type GradingService interface {
	CreateAssignment(ctx context.Context, teacherID string, payload dto.AssignmentCreateRequest, questionDoc, solutionDoc dto.DocumentUpload) (dto.AssignmentResponse, error)
	GradeSubmission(ctx context.Context, studentID string, payload dto.SubmissionCreateRequest, submissionDoc dto.DocumentUpload) (dto.SubmissionResponse, error)
	CheckPaper(ctx context.Context, teacherID string, questionDoc, answerDoc dto.DocumentUpload) (dto.PaperResponse, error)
}

// GradingConfig wires the orchestrator's collaborators. Keys and Events are optional.
type GradingConfig struct {
	Assignments  repository.AssignmentRepository
	Submissions  repository.SubmissionRepository
	Papers       repository.PaperRepository
	Documents    DocumentService
	Engines      grading.Engines
	Keys         KeyCache
	Events       EventPublisher
	Validator    *validator.Validate
	StageTimeout time.Duration
	Logger       zerolog.Logger
}

type gradingService struct {
	assignments  repository.AssignmentRepository
	submissions  repository.SubmissionRepository
	papers       repository.PaperRepository
	documents    DocumentService
	engines      grading.Engines
	keys         KeyCache
	events       EventPublisher
	validator    *validator.Validate
	stageTimeout time.Duration
	sanitizer    *bluemonday.Policy
	tracer       trace.Tracer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewGradingService builds the grading orchestrator.
func NewGradingService(cfg GradingConfig) GradingService {
	timeout := cfg.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}

	return &gradingService{
		assignments:  cfg.Assignments,
		submissions:  cfg.Submissions,
		papers:       cfg.Papers,
		documents:    cfg.Documents,
		engines:      cfg.Engines,
		keys:         cfg.Keys,
		events:       cfg.Events,
		validator:    cfg.Validator,
		stageTimeout: timeout,
		sanitizer:    bluemonday.StrictPolicy(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-grader-api/internal/service/grading"),
		logger:       cfg.Logger.With().Str("component", "grading_service").Logger(),
		now:          time.Now,
	}
}

func (s *gradingService) CreateAssignment(ctx context.Context, teacherID string, payload dto.AssignmentCreateRequest, questionDoc, solutionDoc dto.DocumentUpload) (dto.AssignmentResponse, error) {
	if strings.TrimSpace(teacherID) == "" {
		return dto.AssignmentResponse{}, grading.Validationf("teacher id is required")
	}

	payload.Title = s.clean(payload.Title)
	payload.Subject = s.clean(payload.Subject)
	payload.Description = s.clean(payload.Description)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationError(err)
	}

	deadline, err := parseDeadline(payload.Deadline)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := validatePDF(questionDoc); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("question paper: %w", err)
	}
	if err := validatePDF(solutionDoc); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("solution document: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "grading.create_assignment", trace.WithAttributes(
		attribute.String("teacher_id", teacherID),
	))
	defer span.End()

	var stored []string
	succeeded := false
	defer func() {
		if !succeeded {
			s.documents.Discard(ctx, stored...)
		}
	}()

	questionRef, err := s.documents.Store(ctx, "question", questionDoc)
	if err != nil {
		return dto.AssignmentResponse{}, s.fail(span, err)
	}
	stored = append(stored, questionRef)

	solutionRef, err := s.documents.Store(ctx, "solution", solutionDoc)
	if err != nil {
		return dto.AssignmentResponse{}, s.fail(span, err)
	}
	stored = append(stored, solutionRef)

	structure, err := s.extractStructure(ctx, questionDoc.Content)
	if err != nil {
		return dto.AssignmentResponse{}, s.fail(span, err)
	}

	assignment := models.Assignment{
		Title:               payload.Title,
		Subject:             payload.Subject,
		Description:         payload.Description,
		Deadline:            deadline,
		TeacherID:           teacherID,
		QuestionDocumentRef: questionRef,
		SolutionDocumentRef: solutionRef,
		Structure:           datatypes.NewJSONSlice(structure),
	}
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, s.fail(span, err)
	}

	succeeded = true
	s.logger.Info().Str("assignment_id", assignment.ID).Int("questions", len(structure)).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *gradingService) GradeSubmission(ctx context.Context, studentID string, payload dto.SubmissionCreateRequest, submissionDoc dto.DocumentUpload) (dto.SubmissionResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return dto.SubmissionResponse{}, grading.Validationf("student id is required")
	}

	payload.AssignmentID = strings.TrimSpace(payload.AssignmentID)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, validationError(err)
	}
	if err := validatePDF(submissionDoc); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "grading.grade_submission", trace.WithAttributes(
		attribute.String("assignment_id", payload.AssignmentID),
		attribute.String("student_id", studentID),
	))
	defer span.End()

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, s.fail(span, err)
	}

	if err := s.documents.Require(ctx, assignment.QuestionDocumentRef); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}
	solution, err := s.documents.Load(ctx, assignment.SolutionDocumentRef)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}

	submissionRef, err := s.documents.Store(ctx, "submission", submissionDoc)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}
	succeeded := false
	defer func() {
		if !succeeded {
			s.documents.Discard(ctx, submissionRef)
		}
	}()

	structure := assignment.Questions()
	key, err := s.answerKey(ctx, assignment.ID, assignment.SolutionDocumentRef, structure, solution)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}

	result, err := s.gradeScript(ctx, structure, key, submissionDoc.Content)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}

	submission := models.Submission{
		AssignmentID:          assignment.ID,
		StudentID:             studentID,
		SubmissionDocumentRef: submissionRef,
		AIResult:              datatypes.NewJSONType(models.SubmissionResult{Result: result}),
		Status:                models.SubmissionStatusGraded,
		Late:                  assignment.IsPastDue(s.now()),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, err)
	}

	succeeded = true
	observability.Grades().WithLabelValues("submission", result.Grade).Inc()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", assignment.ID).
		Float64("total_marks", result.TotalMarks).
		Str("grade", result.Grade).
		Bool("late", submission.Late).
		Msg("submission graded")

	s.publish(ctx, GradedEvent{
		Type:         EventSubmissionGraded,
		ID:           submission.ID,
		AssignmentID: assignment.ID,
		OwnerID:      studentID,
		TotalMarks:   result.TotalMarks,
		MaxMarks:     result.MaxMarks,
		Grade:        result.Grade,
		Late:         submission.Late,
		OccurredAt:   submission.SubmittedAt,
	})

	return dto.NewSubmissionResponse(submission), nil
}

// CheckPaper grades a single answer script with no stored assignment. The
// answer script is also the source of the answer key.
func (s *gradingService) CheckPaper(ctx context.Context, teacherID string, questionDoc, answerDoc dto.DocumentUpload) (dto.PaperResponse, error) {
	if strings.TrimSpace(teacherID) == "" {
		return dto.PaperResponse{}, grading.Validationf("teacher id is required")
	}
	if err := validatePDF(questionDoc); err != nil {
		return dto.PaperResponse{}, fmt.Errorf("question paper: %w", err)
	}
	if err := validatePDF(answerDoc); err != nil {
		return dto.PaperResponse{}, fmt.Errorf("answer script: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "grading.check_paper", trace.WithAttributes(
		attribute.String("teacher_id", teacherID),
	))
	defer span.End()

	var stored []string
	succeeded := false
	defer func() {
		if !succeeded {
			s.documents.Discard(ctx, stored...)
		}
	}()

	questionRef, err := s.documents.Store(ctx, "paper_question", questionDoc)
	if err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}
	stored = append(stored, questionRef)

	answerRef, err := s.documents.Store(ctx, "paper_answer", answerDoc)
	if err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}
	stored = append(stored, answerRef)

	structure, err := s.extractStructure(ctx, questionDoc.Content)
	if err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}

	key, err := s.buildKey(ctx, structure, answerDoc.Content)
	if err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}

	result, err := s.gradeScript(ctx, structure, key, answerDoc.Content)
	if err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}

	paper := models.Paper{
		TeacherID:           teacherID,
		QuestionDocumentRef: questionRef,
		AnswerDocumentRef:   answerRef,
		Result:              datatypes.NewJSONType(result),
	}
	if err := s.papers.Create(ctx, &paper); err != nil {
		return dto.PaperResponse{}, s.fail(span, err)
	}

	succeeded = true
	observability.Grades().WithLabelValues("paper", result.Grade).Inc()
	s.logger.Info().Str("paper_id", paper.ID).Str("grade", result.Grade).Msg("paper checked")

	s.publish(ctx, GradedEvent{
		Type:       EventPaperChecked,
		ID:         paper.ID,
		OwnerID:    teacherID,
		TotalMarks: result.TotalMarks,
		MaxMarks:   result.MaxMarks,
		Grade:      result.Grade,
		OccurredAt: paper.CreatedAt,
	})

	return dto.NewPaperResponse(paper), nil
}

func (s *gradingService) extractStructure(ctx context.Context, questionDoc []byte) (models.Structure, error) {
	var structure models.Structure
	err := s.runStage(ctx, grading.StageStructure, func(stageCtx context.Context) error {
		extracted, err := s.engines.Structure.ExtractStructure(stageCtx, questionDoc)
		if err != nil {
			return err
		}
		if len(extracted) == 0 {
			return errors.New("no questions found")
		}
		for i := range extracted {
			extracted[i].QuestionNumber = strings.TrimSpace(extracted[i].QuestionNumber)
			if err := s.validator.Struct(extracted[i]); err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
		}
		structure = extracted
		return nil
	})
	return structure, err
}

// answerKey returns the cached key for an assignment or builds and caches it.
func (s *gradingService) answerKey(ctx context.Context, assignmentID, solutionRef string, structure models.Structure, solution []byte) (grading.AnswerKey, error) {
	if s.keys != nil {
		if key, ok := s.keys.Get(ctx, assignmentID, solutionRef); ok {
			if aligned, err := grading.AlignKey(structure, key); err == nil {
				return aligned, nil
			}
		}
	}

	key, err := s.buildKey(ctx, structure, solution)
	if err != nil {
		return nil, err
	}

	if s.keys != nil {
		s.keys.Set(ctx, assignmentID, solutionRef, key)
	}
	return key, nil
}

func (s *gradingService) buildKey(ctx context.Context, structure models.Structure, source []byte) (grading.AnswerKey, error) {
	var key grading.AnswerKey
	err := s.runStage(ctx, grading.StageKey, func(stageCtx context.Context) error {
		built, err := s.engines.Keys.BuildKey(stageCtx, structure, source)
		if err != nil {
			return err
		}
		key, err = grading.AlignKey(structure, built)
		return err
	})
	return key, err
}

// gradeScript runs answer extraction and grading and derives the stored result.
func (s *gradingService) gradeScript(ctx context.Context, structure models.Structure, key grading.AnswerKey, script []byte) (models.Result, error) {
	var answers grading.CandidateAnswers
	err := s.runStage(ctx, grading.StageAnswers, func(stageCtx context.Context) error {
		extracted, err := s.engines.Answers.ExtractAnswers(stageCtx, structure, script)
		if err != nil {
			return err
		}
		answers = grading.AlignAnswers(structure, extracted)
		return nil
	})
	if err != nil {
		return models.Result{}, err
	}

	var outcome grading.Outcome
	err = s.runStage(ctx, grading.StageGrade, func(stageCtx context.Context) error {
		graded, err := s.engines.Grader.Grade(stageCtx, answers, key)
		if err != nil {
			return err
		}
		outcome, err = grading.Normalize(structure, graded)
		return err
	})
	if err != nil {
		return models.Result{}, err
	}

	outcome.Remarks = s.clean(outcome.Remarks)
	for i := range outcome.Results {
		outcome.Results[i].Feedback = s.clean(outcome.Results[i].Feedback)
	}

	return grading.BuildResult(structure, outcome), nil
}

// runStage bounds fn by the stage timeout and classifies its failure.
func (s *gradingService) runStage(ctx context.Context, stage grading.Stage, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	defer cancel()

	stageCtx, span := s.tracer.Start(stageCtx, "grading.stage."+string(stage))
	defer span.End()

	start := time.Now()
	err := fn(stageCtx)
	if err == nil && stageCtx.Err() != nil {
		err = stageCtx.Err()
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.StageDuration().WithLabelValues(string(stage), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Warn().Err(err).Str("stage", string(stage)).Msg("pipeline stage failed")
		return grading.NewStageError(stage, err)
	}
	return nil
}

func (s *gradingService) publish(ctx context.Context, event GradedEvent) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Str("id", event.ID).Msg("failed to publish event")
	}
}

func (s *gradingService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *gradingService) clean(value string) string {
	return plainText(s.sanitizer, value)
}

func parseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}

	return nil, grading.Validationf("invalid deadline %q", value)
}
