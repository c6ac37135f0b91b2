package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	grading     service.GradingService
	assignments service.AssignmentService
	submissions service.SubmissionService
	maxUpload   int64
	logger      zerolog.Logger
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(grading service.GradingService, assignments service.AssignmentService, submissions service.SubmissionService, maxUpload int64, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		grading:     grading,
		assignments: assignments,
		submissions: submissions,
		maxUpload:   maxUpload,
		logger:      logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register mounts the assignment routes. Creation runs the grading pipeline,
// so it can be wrapped with an extra limiter.
func (h *AssignmentHandler) Register(router fiber.Router, create ...fiber.Handler) {
	faculty := middleware.RequireRole(middleware.RoleFaculty)

	router.Get("", h.list)
	router.Get("/mine", faculty, h.listMine)
	router.Post("", append(append([]fiber.Handler{faculty}, create...), h.create)...)
	router.Get("/:id", h.get)
	router.Patch("/:id", faculty, h.update)
	router.Get("/:id/submissions", faculty, h.listSubmissions)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	items, err := h.assignments.List(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", items)
}

func (h *AssignmentHandler) listMine(c *fiber.Ctx) error {
	items, err := h.assignments.ListByTeacher(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", items)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	questionDoc, err := readUpload(c, "question_pdf", h.maxUpload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	solutionDoc, err := readUpload(c, "faculty_solution_pdf", h.maxUpload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	assignment, err := h.grading.CreateAssignment(c.UserContext(), middleware.UserID(c), payload, questionDoc, solutionDoc)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Str("assignment_id", assignment.ID).Float64("max_marks", assignment.MaxMarks).Msg("assignment created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	assignment, err := h.assignments.Get(c.UserContext(), c.Params("id"), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.assignments.Update(c.UserContext(), c.Params("id"), viewerFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) listSubmissions(c *fiber.Ctx) error {
	items, err := h.submissions.ListByAssignment(c.UserContext(), c.Params("id"), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", items)
}
