// Package httpserver runs an http.Server for the lifetime of a context.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
)

// DefaultGrace is used when Run is given a non-positive grace period.
const DefaultGrace = 5 * time.Second

// Run listens on srv.Addr and serves until ctx ends or serving fails.
// When ctx ends, in-flight requests get grace to finish. bound, if not
// nil, is called with the listening address before the first request.
func Run(ctx context.Context, name string, srv *http.Server, grace time.Duration, bound func(net.Addr)) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("%s server failed to listen on %s: %w", name, srv.Addr, err)
	}
	if bound != nil {
		bound(ln.Addr())
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	logger.Info(name+" server listening", "addr", ln.Addr().String())

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(name+" server did not drain in time", "grace", grace, logger.Err(err))
		_ = srv.Close()
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	logger.Info(name + " server stopped")
	return nil
}
