// Package blob defines the object store that holds file bytes.
//
// The drive core only needs two things from a blob store: put bytes under a
// key and get back a URL that retrieves them, and delete them again. Progress
// is reported through a callback so the caller can surface it without the
// adapter knowing anything about upload tasks.
package blob

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("blob store is closed")

	// ErrBlobNotFound is returned when a key has no object.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidKey is returned for keys that are empty or escape the store.
	ErrInvalidKey = errors.New("invalid blob key")
)

// ProgressFunc receives upload progress in percent (0..100).
// Calls are monotonic non-decreasing. It may be nil.
type ProgressFunc func(percent int)

// Store is an object store for file contents.
type Store interface {
	// Upload stores size bytes read from data under key and returns the URL
	// the object can be retrieved from. onProgress, when non-nil, is called
	// with monotonic percentages and receives 100 before a successful return.
	Upload(ctx context.Context, key string, data io.Reader, size int64, onProgress ProgressFunc) (string, error)

	// Delete removes the object stored under key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error

	// Healthcheck verifies the store is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
