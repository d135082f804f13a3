package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidLocator = errors.New("invalid storage locator")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrShortWrite     = errors.New("object size does not match declared size")
)

// ProgressFunc receives the cumulative number of bytes written so far
type ProgressFunc func(written int64)

// ObjectStore is durable storage for recorded audio. Keys are caller-chosen
// and deterministic, so a second Put with the same key overwrites.
type ObjectStore interface {
	// Put writes size bytes from r under key and returns the object's locator
	Put(ctx context.Context, key string, r io.Reader, size int64, onProgress ProgressFunc) (string, error)

	// Open returns a reader for the object behind locator
	Open(ctx context.Context, locator string) (io.ReadCloser, error)

	// Delete removes the object behind locator. It reports false when the
	// object was already gone.
	Delete(ctx context.Context, locator string) (bool, error)

	// Name identifies the backend in logs and metrics
	Name() string
}
