package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// PaperHandler serves ad-hoc paper checks.
type PaperHandler struct {
	grading   service.GradingService
	papers    service.PaperService
	maxUpload int64
	logger    zerolog.Logger
}

// NewPaperHandler constructs a paper handler.
func NewPaperHandler(grading service.GradingService, papers service.PaperService, maxUpload int64, logger zerolog.Logger) *PaperHandler {
	return &PaperHandler{
		grading:   grading,
		papers:    papers,
		maxUpload: maxUpload,
		logger:    logger.With().Str("component", "paper_handler").Logger(),
	}
}

// Register mounts the paper routes. The group is expected to be faculty only.
func (h *PaperHandler) Register(router fiber.Router, check ...fiber.Handler) {
	router.Post("/check", append(append([]fiber.Handler{}, check...), h.check)...)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id/notes", h.annotate)
}

func (h *PaperHandler) check(c *fiber.Ctx) error {
	questionDoc, err := readUpload(c, "question_pdf", h.maxUpload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	answerDoc, err := readUpload(c, "answer_pdf", h.maxUpload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	paper, err := h.grading.CheckPaper(c.UserContext(), middleware.UserID(c), questionDoc, answerDoc)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Str("paper_id", paper.ID).Str("grade", paper.Result.Grade).Msg("paper checked")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "paper checked", paper)
}

func (h *PaperHandler) list(c *fiber.Ctx) error {
	items, err := h.papers.ListByTeacher(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "papers retrieved", items)
}

func (h *PaperHandler) get(c *fiber.Ctx) error {
	paper, err := h.papers.Get(c.UserContext(), c.Params("id"), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "paper retrieved", paper)
}

func (h *PaperHandler) annotate(c *fiber.Ctx) error {
	var payload dto.PaperNotesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	paper, err := h.papers.Annotate(c.UserContext(), c.Params("id"), viewerFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "paper updated", paper)
}
