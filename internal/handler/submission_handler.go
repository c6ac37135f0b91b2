package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	grading     service.GradingService
	submissions service.SubmissionService
	maxUpload   int64
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(grading service.GradingService, submissions service.SubmissionService, maxUpload int64, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		grading:     grading,
		submissions: submissions,
		maxUpload:   maxUpload,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router, create ...fiber.Handler) {
	student := middleware.RequireRole(middleware.RoleStudent)

	router.Get("", h.list)
	router.Post("", append(append([]fiber.Handler{student}, create...), h.create)...)
	router.Get("/:id", h.get)
	router.Patch("/:id/review", middleware.RequireRole(middleware.RoleFaculty), h.review)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	items, err := h.submissions.List(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	doc, err := readUpload(c, "sub_pdf", h.maxUpload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	submission, err := h.grading.GradeSubmission(c.UserContext(), middleware.UserID(c), payload, doc)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", submission.AssignmentID).
		Str("grade", submission.AIResult.Grade).
		Msg("submission graded")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	submission, err := h.submissions.Get(c.UserContext(), c.Params("id"), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) review(c *fiber.Ctx) error {
	var payload dto.SubmissionReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Review(c.UserContext(), c.Params("id"), viewerFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission reviewed", submission)
}
