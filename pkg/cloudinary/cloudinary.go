package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/pkg/storage"
)

const resourceType = "raw"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores documents as raw Cloudinary assets. References are public ids.
type Service struct {
	client     *cloudinary.Cloudinary
	cloudName  string
	folder     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ storage.DocumentStore = (*Service)(nil)

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client:     cld,
		cloudName:  cfg.CloudName,
		folder:     strings.Trim(cfg.Folder, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Save uploads the document and returns its public id.
func (s *Service) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     buildPublicID(name),
		ResourceType: resourceType,
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("document uploaded to cloudinary")

	return result.PublicID, nil
}

// Load downloads the document behind a public id.
func (s *Service) Load(ctx context.Context, ref string) ([]byte, error) {
	resp, err := s.fetch(ctx, http.MethodGet, ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, storage.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch asset %s: status %d", ref, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", ref, err)
	}
	return data, nil
}

// Exists reports whether the asset can be delivered.
func (s *Service) Exists(ctx context.Context, ref string) (bool, error) {
	resp, err := s.fetch(ctx, http.MethodHead, ref)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check asset %s: status %d", ref, resp.StatusCode)
	}
}

// Delete destroys the asset.
func (s *Service) Delete(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.New("empty document reference")
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     ref,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}

	s.logger.Info().Str("public_id", ref).Str("result", result.Result).Msg("document removed from cloudinary")
	return nil
}

func (s *Service) fetch(ctx context.Context, method, ref string) (*http.Response, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.New("empty document reference")
	}

	req, err := http.NewRequestWithContext(ctx, method, s.deliveryURL(ref), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset %s: %w", ref, err)
	}
	return resp, nil
}

func (s *Service) deliveryURL(publicID string) string {
	escaped := make([]string, 0)
	for _, segment := range strings.Split(publicID, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/%s/upload/%s", s.cloudName, resourceType, path.Join(escaped...))
}

func buildPublicID(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	// Raw assets keep their extension as part of the public id.
	return base + strings.ToLower(ext)
}
