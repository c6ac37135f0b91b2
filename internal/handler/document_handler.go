package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/service"
)

// DocumentHandler streams stored PDFs back to the callers allowed to read them.
type DocumentHandler struct {
	documents service.DocumentAccessService
	logger    zerolog.Logger
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(documents service.DocumentAccessService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    logger.With().Str("component", "document_handler").Logger(),
	}
}

// Register mounts the document route.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *DocumentHandler) get(c *fiber.Ctx) error {
	doc, err := h.documents.Open(c.UserContext(), c.Query("ref"), viewerFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+doc.Ref+`"`)
	return c.Status(fiber.StatusOK).Send(doc.Content)
}
