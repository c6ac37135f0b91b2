package handler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// DefaultUploadLimit caps each uploaded PDF at 16MB.
const DefaultUploadLimit int64 = 16 << 20

func viewerFromContext(c *fiber.Ctx) service.Viewer {
	return service.Viewer{
		UserID: middleware.UserID(c),
		Role:   middleware.UserRole(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.RequestLogger(base, c)
	if userID := middleware.UserID(c); userID != "" {
		logger = logger.With().Str("user_id", userID).Logger()
	}
	return &logger
}

// readUpload loads a multipart file field fully into memory.
func readUpload(c *fiber.Ctx, field string, maxBytes int64) (dto.DocumentUpload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadLimit
	}

	header, err := c.FormFile(field)
	if err != nil {
		return dto.DocumentUpload{}, grading.Validationf("%s is required", field)
	}
	if header.Size > maxBytes {
		return dto.DocumentUpload{}, grading.Validationf("%s exceeds %d bytes", field, maxBytes)
	}
	if !strings.EqualFold(extension(header.Filename), ".pdf") {
		return dto.DocumentUpload{}, grading.Validationf("%s must be a .pdf file", field)
	}

	file, err := header.Open()
	if err != nil {
		return dto.DocumentUpload{}, fmt.Errorf("open %s: %w", field, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return dto.DocumentUpload{}, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(content)) > maxBytes {
		return dto.DocumentUpload{}, grading.Validationf("%s exceeds %d bytes", field, maxBytes)
	}

	return dto.DocumentUpload{Filename: header.Filename, Content: content}, nil
}

func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}

// handleError maps service failures onto the response envelope. Stage
// failures win over their causes; field details are reported only for
// request validation.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, grading.ErrExtractionFailed):
		requestLogger(logger, c).Warn().Err(err).Msg("extraction failed")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "could not extract content from the document")
	case errors.Is(err, grading.ErrGradingFailed):
		requestLogger(logger, c).Warn().Err(err).Msg("grading failed")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "could not grade the submission")
	case errors.Is(err, grading.ErrValidationFailed):
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", fieldErrors(validationErrors))
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrPaperNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "paper not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "document not found")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func fieldErrors(errs validator.ValidationErrors) []utils.FieldError {
	details := make([]utils.FieldError, 0, len(errs))
	for _, fe := range errs {
		details = append(details, utils.FieldError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
	}
	return details
}
