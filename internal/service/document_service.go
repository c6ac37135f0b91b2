package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/pkg/storage"
)

const pdfMIME = "application/pdf"

// DocumentService stores uploaded PDFs and serves them back by reference.
type DocumentService interface {
	Store(ctx context.Context, kind string, upload dto.DocumentUpload) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Require(ctx context.Context, ref string) error
	Discard(ctx context.Context, refs ...string)
	Open(ctx context.Context, ref string) (dto.Document, error)
}

type documentService struct {
	store  storage.DocumentStore
	logger zerolog.Logger
}

// NewDocumentService wraps a document store.
func NewDocumentService(store storage.DocumentStore, logger zerolog.Logger) DocumentService {
	return &documentService{
		store:  store,
		logger: logger.With().Str("component", "document_service").Logger(),
	}
}

// Store validates the upload is a PDF and saves it under a generated name.
func (s *documentService) Store(ctx context.Context, kind string, upload dto.DocumentUpload) (string, error) {
	if err := validatePDF(upload); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.pdf", kind, strings.ReplaceAll(uuid.NewString(), "-", ""))
	ref, err := s.store.Save(ctx, name, bytes.NewReader(upload.Content))
	if err != nil {
		return "", fmt.Errorf("store %s document: %w", kind, err)
	}

	s.logger.Debug().Str("ref", ref).Str("kind", kind).Str("filename", upload.Filename).Msg("document stored")
	return ref, nil
}

// Load reads a document referenced by a record.
func (s *documentService) Load(ctx context.Context, ref string) ([]byte, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrDocumentUnavailable
	}

	data, err := s.store.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentUnavailable, ref, err)
	}
	return data, nil
}

// Require checks that a document referenced by a record is still stored
// without reading it.
func (s *documentService) Require(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return ErrDocumentUnavailable
	}

	exists, err := s.store.Exists(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDocumentUnavailable, ref, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDocumentUnavailable, ref)
	}
	return nil
}

// Discard removes documents stored for a request that did not complete.
func (s *documentService) Discard(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.store.Delete(context.WithoutCancel(ctx), ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("ref", ref).Msg("failed to discard document")
		}
	}
}

// Open returns a stored document for download.
func (s *documentService) Open(ctx context.Context, ref string) (dto.Document, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return dto.Document{}, validationError(errors.New("document ref is required"))
	}

	data, err := s.store.Load(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return dto.Document{}, ErrDocumentNotFound
		}
		if errors.Is(err, storage.ErrInvalidRef) {
			return dto.Document{}, validationError(err)
		}
		return dto.Document{}, err
	}

	return dto.Document{
		Ref:         ref,
		ContentType: mimetype.Detect(data).String(),
		Content:     data,
	}, nil
}

func validatePDF(upload dto.DocumentUpload) error {
	if len(upload.Content) == 0 {
		return ErrInvalidDocument
	}

	detected := mimetype.Detect(upload.Content)
	if !detected.Is(pdfMIME) {
		return fmt.Errorf("%w: got %s", ErrInvalidDocument, detected.String())
	}
	return nil
}
