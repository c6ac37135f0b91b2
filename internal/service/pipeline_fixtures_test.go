package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/repository"
	"github.com/noah-isme/gema-grader-api/pkg/storage"
)

const uploadDir = "uploads"

func pdf(body string) dto.DocumentUpload {
	return dto.DocumentUpload{
		Filename: "doc.pdf",
		Content:  []byte("%PDF-1.4\n" + body + "\n%%EOF"),
	}
}

// fakeEngines scripts every pipeline stage and records what each stage saw.
type fakeEngines struct {
	mu sync.Mutex

	structure    models.Structure
	structureErr error
	keyErr       error
	answersErr   error
	gradeErr     error
	scores       []float64
	answers      map[string]string
	feedback     string
	block        grading.Stage

	keyCalls     int
	keySources   [][]byte
	answerInputs [][]byte
	gradeCalls   int
}

func newFakeEngines() *fakeEngines {
	return &fakeEngines{
		structure: models.Structure{
			{QuestionNumber: "1", MaxMarks: 5, Text: "Capital of France?"},
			{QuestionNumber: "2", MaxMarks: 5, Text: "Capital of Germany?"},
		},
		scores:  []float64{5, 2},
		answers: map[string]string{"1": "Paris", "2": "Munich"},
	}
}

func (f *fakeEngines) engines() grading.Engines {
	return grading.Engines{Structure: f, Keys: f, Answers: f, Grader: f}
}

func (f *fakeEngines) wait(ctx context.Context, stage grading.Stage) error {
	if f.block != stage {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeEngines) ExtractStructure(ctx context.Context, questionDoc []byte) (models.Structure, error) {
	if err := f.wait(ctx, grading.StageStructure); err != nil {
		return nil, err
	}
	if f.structureErr != nil {
		return nil, f.structureErr
	}
	return append(models.Structure(nil), f.structure...), nil
}

func (f *fakeEngines) BuildKey(ctx context.Context, structure models.Structure, solutionDoc []byte) (grading.AnswerKey, error) {
	f.mu.Lock()
	f.keyCalls++
	f.keySources = append(f.keySources, solutionDoc)
	f.mu.Unlock()

	if f.keyErr != nil {
		return nil, f.keyErr
	}
	key := make(grading.AnswerKey, 0, len(structure))
	for _, q := range structure {
		key = append(key, grading.KeyEntry{QuestionNumber: q.QuestionNumber, ExpectedAnswer: "expected " + q.QuestionNumber})
	}
	return key, nil
}

func (f *fakeEngines) ExtractAnswers(ctx context.Context, structure models.Structure, candidateDoc []byte) (grading.CandidateAnswers, error) {
	f.mu.Lock()
	f.answerInputs = append(f.answerInputs, candidateDoc)
	f.mu.Unlock()

	if f.answersErr != nil {
		return nil, f.answersErr
	}
	answers := grading.CandidateAnswers{}
	for _, q := range structure {
		if answer, ok := f.answers[q.QuestionNumber]; ok {
			answers = append(answers, grading.CandidateAnswer{QuestionNumber: q.QuestionNumber, Answer: answer})
		}
	}
	return answers, nil
}

func (f *fakeEngines) Grade(ctx context.Context, answers grading.CandidateAnswers, key grading.AnswerKey) (grading.Outcome, error) {
	f.mu.Lock()
	f.gradeCalls++
	f.mu.Unlock()

	if f.gradeErr != nil {
		return grading.Outcome{}, f.gradeErr
	}
	if len(answers) != len(key) {
		return grading.Outcome{}, fmt.Errorf("got %d answers for %d key entries", len(answers), len(key))
	}

	feedback := f.feedback
	if feedback == "" {
		feedback = "checked"
	}
	outcome := grading.Outcome{Remarks: "Solid attempt"}
	for i, entry := range key {
		score := 0.0
		if i < len(f.scores) {
			score = f.scores[i]
		}
		if answers[i].Missing {
			score = 0
		}
		outcome.TotalScore += score
		outcome.Results = append(outcome.Results, models.QuestionResult{
			QuestionNumber: entry.QuestionNumber,
			Score:          score,
			Feedback:       feedback,
			StudentAnswer:  answers[i].Answer,
			ExpectedAnswer: entry.ExpectedAnswer,
		})
	}
	return outcome, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []GradedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event GradedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type pipelineFixture struct {
	db          *gorm.DB
	fs          afero.Fs
	engines     *fakeEngines
	events      *recordingPublisher
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	papers      repository.PaperRepository
	documents   DocumentService
	validate    *validator.Validate
	cfg         GradingConfig
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Paper{}))

	fs := afero.NewMemMapFs()
	store, err := storage.NewLocal(fs, uploadDir, zerolog.Nop())
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	opts := repository.Options{Locks: repository.NewWriterLocks(), Validator: validate}

	f := &pipelineFixture{
		db:          db,
		fs:          fs,
		engines:     newFakeEngines(),
		events:      &recordingPublisher{},
		assignments: repository.NewAssignmentRepository(db, opts),
		submissions: repository.NewSubmissionRepository(db, opts),
		papers:      repository.NewPaperRepository(db, opts),
		documents:   NewDocumentService(store, zerolog.Nop()),
		validate:    validate,
	}
	f.cfg = GradingConfig{
		Assignments: f.assignments,
		Submissions: f.submissions,
		Papers:      f.papers,
		Documents:   f.documents,
		Engines:     f.engines.engines(),
		Events:      f.events,
		Validator:   validate,
		Logger:      zerolog.Nop(),
	}
	return f
}

func (f *pipelineFixture) service() GradingService {
	return NewGradingService(f.cfg)
}

func (f *pipelineFixture) storedDocuments(t *testing.T) []string {
	t.Helper()

	entries, err := afero.ReadDir(f.fs, uploadDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (f *pipelineFixture) createAssignment(t *testing.T, teacherID string) dto.AssignmentResponse {
	t.Helper()

	created, err := f.service().CreateAssignment(context.Background(), teacherID,
		dto.AssignmentCreateRequest{Title: "Geography quiz", Subject: "Geography", Deadline: "2030-06-01"},
		pdf("questions"), pdf("solutions"))
	require.NoError(t, err)
	return created
}

var errEngineDown = errors.New("engine down")
