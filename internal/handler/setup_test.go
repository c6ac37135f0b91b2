package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/config"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/handler"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/repository"
	"github.com/noah-isme/gema-grader-api/internal/router"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/pkg/storage"
)

const (
	headerTestUser = "X-Test-User"
	headerTestRole = "X-Test-Role"
)

// stubEngines grades two five-mark questions, awarding 5 and 2 marks.
type stubEngines struct {
	mu        sync.Mutex
	gradeErr  error
	structure models.Structure
}

func (s *stubEngines) ExtractStructure(context.Context, []byte) (models.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.structure != nil {
		return append(models.Structure(nil), s.structure...), nil
	}
	return models.Structure{
		{QuestionNumber: "1", MaxMarks: 5, Text: "Define osmosis."},
		{QuestionNumber: "2", MaxMarks: 5, Text: "Define diffusion."},
	}, nil
}

func (s *stubEngines) BuildKey(_ context.Context, structure models.Structure, _ []byte) (grading.AnswerKey, error) {
	key := make(grading.AnswerKey, 0, len(structure))
	for _, q := range structure {
		key = append(key, grading.KeyEntry{QuestionNumber: q.QuestionNumber, ExpectedAnswer: "model answer " + q.QuestionNumber})
	}
	return key, nil
}

func (s *stubEngines) ExtractAnswers(_ context.Context, structure models.Structure, _ []byte) (grading.CandidateAnswers, error) {
	answers := make(grading.CandidateAnswers, 0, len(structure))
	for _, q := range structure {
		answers = append(answers, grading.CandidateAnswer{QuestionNumber: q.QuestionNumber, Answer: "answer " + q.QuestionNumber})
	}
	return answers, nil
}

func (s *stubEngines) Grade(_ context.Context, answers grading.CandidateAnswers, key grading.AnswerKey) (grading.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gradeErr != nil {
		return grading.Outcome{}, s.gradeErr
	}

	scores := []float64{5, 2}
	outcome := grading.Outcome{Remarks: "Good effort"}
	for i, entry := range key {
		outcome.Results = append(outcome.Results, models.QuestionResult{
			QuestionNumber: entry.QuestionNumber,
			Score:          scores[i%len(scores)],
			Feedback:       "ok",
		})
		outcome.TotalScore += scores[i%len(scores)]
	}
	return outcome, nil
}

func (s *stubEngines) extract(structure models.Structure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structure = structure
}

func (s *stubEngines) failGrading(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradeErr = err
}

type graderApp struct {
	app     *fiber.App
	db      *gorm.DB
	fs      afero.Fs
	engines *stubEngines
}

// testIdentity stands in for JWT verification by trusting test headers.
func testIdentity(c *fiber.Ctx) error {
	if user := c.Get(headerTestUser); user != "" {
		c.Locals(middleware.LocalUserID, user)
	}
	if role := c.Get(headerTestRole); role != "" {
		c.Locals(middleware.LocalUserRole, role)
	}
	return c.Next()
}

func setupGraderApp(t *testing.T, jwt fiber.Handler) *graderApp {
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
	store, err := storage.NewLocal(fs, "uploads", zerolog.Nop())
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	opts := repository.Options{Locks: repository.NewWriterLocks(), Validator: validate}

	assignmentRepo := repository.NewAssignmentRepository(db, opts)
	submissionRepo := repository.NewSubmissionRepository(db, opts)
	paperRepo := repository.NewPaperRepository(db, opts)

	engines := &stubEngines{}
	documents := service.NewDocumentService(store, logger)
	gradingService := service.NewGradingService(service.GradingConfig{
		Assignments: assignmentRepo,
		Submissions: submissionRepo,
		Papers:      paperRepo,
		Documents:   documents,
		Engines:     grading.Engines{Structure: engines, Keys: engines, Answers: engines, Grader: engines},
		Validator:   validate,
		Logger:      logger,
	})
	assignments := service.NewAssignmentService(assignmentRepo, validate, logger)
	submissions := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, logger)
	papers := service.NewPaperService(paperRepo, validate, logger)
	documentAccess := service.NewDocumentAccessService(documents, assignmentRepo, submissionRepo, paperRepo, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "secret", GraderProvider: "gemini"}, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(gradingService, assignments, submissions, handler.DefaultUploadLimit, logger),
		SubmissionHandler: handler.NewSubmissionHandler(gradingService, submissions, handler.DefaultUploadLimit, logger),
		PaperHandler:      handler.NewPaperHandler(gradingService, papers, handler.DefaultUploadLimit, logger),
		DocumentHandler:   handler.NewDocumentHandler(documentAccess, logger),
		JWTMiddleware:     jwt,
	})

	return &graderApp{app: app, db: db, fs: fs, engines: engines}
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func pdfFile(field, body string) formFile {
	return formFile{field: field, filename: field + ".pdf", content: []byte("%PDF-1.4\n" + body + "\n%%EOF")}
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func as(req *http.Request, userID, role string) *http.Request {
	req.Header.Set(headerTestUser, userID)
	req.Header.Set(headerTestRole, role)
	return req
}

func (g *graderApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := g.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeEnvelope[T any](t *testing.T, resp *http.Response) envelope[T] {
	t.Helper()

	var body envelope[T]
	decodeResponse(t, resp, &body)
	return body
}
