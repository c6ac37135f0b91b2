// Package storage keeps uploaded documents out of band and hands back opaque
// references that records can carry.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound indicates no document exists for a reference.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidRef indicates a reference the store can never resolve.
	ErrInvalidRef = errors.New("invalid document reference")
)

// DocumentStore persists document bytes under opaque references.
type DocumentStore interface {
	Save(ctx context.Context, name string, reader io.Reader) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}
