package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/gema-grader-api/internal/grading"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrPaperNotFound indicates a paper check could not be found.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrAccessDenied indicates the caller may not read or change the record.
	ErrAccessDenied = errors.New("access denied")
	// ErrDocumentUnavailable indicates a stored document referenced by a record cannot be read.
	ErrDocumentUnavailable = errors.New("document unavailable")
	// ErrDocumentNotFound indicates a requested document reference does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument indicates an upload is missing or is not a PDF.
	ErrInvalidDocument = fmt.Errorf("%w: document must be a non-empty PDF", grading.ErrValidationFailed)
)

func validationError(err error) error {
	return fmt.Errorf("%w: %w", grading.ErrValidationFailed, err)
}
