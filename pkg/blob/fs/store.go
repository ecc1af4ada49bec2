// Package fs provides a filesystem-backed blob store.
package fs

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/marmos91/dittodrive/pkg/bufpool"
)

// Config holds configuration for the filesystem blob store.
type Config struct {
	// BasePath is the root directory for objects.
	// Keys are stored as paths relative to this directory.
	BasePath string

	// PublicURL prefixes returned URLs, e.g. the address of a static file
	// server in front of BasePath. Empty means file:// URLs.
	PublicURL string

	// CreateDir creates the base directory if it doesn't exist.
	CreateDir bool

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:  basePath,
		CreateDir: true,
		DirMode:   0755,
		FileMode:  0644,
	}
}

// Store writes each object to its own file under BasePath.
type Store struct {
	mu       sync.RWMutex
	cfg      Config
	basePath string
	closed   bool
}

// New creates a new filesystem blob store with the given configuration.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("base path is not a directory")
	}

	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, err
	}

	return &Store{cfg: cfg, basePath: abs}, nil
}

// objectPath maps key to a path inside basePath.
func (s *Store) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", blob.ErrInvalidKey
	}
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		return "", blob.ErrInvalidKey
	}
	return path, nil
}

func (s *Store) url(key, path string) string {
	if s.cfg.PublicURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	}
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + key
}

// Upload streams data to a temporary file and renames it into place.
func (s *Store) Upload(ctx context.Context, key string, data io.Reader, size int64, onProgress blob.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", blob.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), s.cfg.DirMode); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	pr := blob.NewProgressReader(data, size, onProgress)
	if _, err := bufpool.Copy(tmp, &ctxReader{ctx: ctx, r: pr}); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpPath, s.cfg.FileMode); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	committed = true

	pr.Complete()
	return s.url(key, path), nil
}

// Delete removes the file stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return blob.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Healthcheck verifies the base directory is still a writable directory.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return blob.ErrStoreClosed
	}

	f, err := os.CreateTemp(s.basePath, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

var _ blob.Store = (*Store)(nil)
