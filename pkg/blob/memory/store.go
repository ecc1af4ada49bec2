// Package memory provides an in-memory blob store for tests and development.
package memory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/marmos91/dittodrive/pkg/bufpool"
)

// DefaultBaseURL prefixes the URLs returned by the store.
const DefaultBaseURL = "memory://blobs"

// Store keeps objects in a map.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
	closed  bool
}

// New creates an empty store. An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Store{
		objects: make(map[string][]byte),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload reads data fully and stores it under key.
func (s *Store) Upload(ctx context.Context, key string, data io.Reader, size int64, onProgress blob.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", blob.ErrInvalidKey
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return "", blob.ErrStoreClosed
	}

	pr := blob.NewProgressReader(data, size, onProgress)
	var buf bytes.Buffer
	if _, err := bufpool.Copy(&buf, readerWithContext{ctx: ctx, r: pr}); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", blob.ErrStoreClosed
	}
	s.objects[key] = buf.Bytes()
	s.mu.Unlock()

	pr.Complete()
	return s.baseURL + "/" + key, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return blob.ErrStoreClosed
	}
	delete(s.objects, key)
	return nil
}

// Get returns a copy of the object stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrBlobNotFound
	}
	return bytes.Clone(data), nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Healthcheck fails only once the store is closed.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	return nil
}

// Close drops every object.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.objects = nil
	return nil
}

// readerWithContext stops reading once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

var _ blob.Store = (*Store)(nil)
