package blob

import (
	"context"
	"io"
	"time"

	"github.com/marmos91/dittodrive/internal/telemetry"
)

// Metrics records blob store operations. A nil Metrics disables recording.
type Metrics interface {
	ObserveOperation(operation string, bytes int64, duration time.Duration, err error)
}

// instrumentedStore wraps a Store with tracing spans and metrics.
type instrumentedStore struct {
	Store
	metrics Metrics
}

// Instrument returns s wrapped so every call opens a span and, when m is
// non-nil, is timed.
func Instrument(s Store, m Metrics) Store {
	return &instrumentedStore{Store: s, metrics: m}
}

func (s *instrumentedStore) Upload(ctx context.Context, key string, data io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "upload", key, telemetry.Size(size))
	defer span.End()

	start := time.Now()
	url, err := s.Store.Upload(ctx, key, data, size, onProgress)
	s.observe("upload", size, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return url, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	ctx, span := telemetry.StartBlobSpan(ctx, "delete", key)
	defer span.End()

	start := time.Now()
	err := s.Store.Delete(ctx, key)
	s.observe("delete", 0, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

func (s *instrumentedStore) Healthcheck(ctx context.Context) error {
	start := time.Now()
	err := s.Store.Healthcheck(ctx)
	s.observe("healthcheck", 0, start, err)
	return err
}

func (s *instrumentedStore) observe(op string, bytes int64, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, bytes, time.Since(start), err)
	}
}
