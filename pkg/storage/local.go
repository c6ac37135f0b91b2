package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Local stores documents in a directory of an afero filesystem.
type Local struct {
	fs     afero.Fs
	dir    string
	logger zerolog.Logger
}

// NewLocal returns a store rooted at dir. Pass afero.NewOsFs() in production
// and afero.NewMemMapFs() in tests.
func NewLocal(filesystem afero.Fs, dir string, logger zerolog.Logger) (*Local, error) {
	if filesystem == nil {
		return nil, fmt.Errorf("filesystem must not be nil")
	}
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}

	if err := filesystem.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Local{
		fs:     filesystem,
		dir:    dir,
		logger: logger.With().Str("component", "local_storage").Logger(),
	}, nil
}

// Save writes the document and returns its file name as the reference.
func (l *Local) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	ref, err := cleanRef(name)
	if err != nil {
		return "", err
	}

	file, err := l.fs.Create(path.Join(l.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		_ = l.fs.Remove(path.Join(l.dir, ref))
		return "", fmt.Errorf("write document: %w", err)
	}

	l.logger.Debug().Str("ref", ref).Int64("bytes", written).Msg("document stored")
	return ref, nil
}

// Load reads the document behind ref.
func (l *Local) Load(ctx context.Context, ref string) ([]byte, error) {
	ref, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, path.Join(l.dir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}

	return data, nil
}

// Exists reports whether ref resolves to a stored document.
func (l *Local) Exists(ctx context.Context, ref string) (bool, error) {
	ref, err := cleanRef(ref)
	if err != nil {
		return false, err
	}
	return afero.Exists(l.fs, path.Join(l.dir, ref))
}

// Delete removes the document; deleting a missing document is not an error.
func (l *Local) Delete(ctx context.Context, ref string) error {
	ref, err := cleanRef(ref)
	if err != nil {
		return err
	}

	if err := l.fs.Remove(path.Join(l.dir, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func cleanRef(name string) (string, error) {
	name = strings.TrimSpace(name)
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || base != name || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w %q", ErrInvalidRef, name)
	}
	return base, nil
}
