package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// Metrics records HTTP traffic. A nil Metrics disables recording.
type Metrics interface {
	// ObserveRequest records a finished request. route is the matched chi
	// pattern, never the raw path.
	ObserveRequest(method, route string, status int, duration time.Duration)

	// InFlight adjusts the number of requests being served.
	InFlight(delta int)
}

// Observe opens the request span, seeds the log context, logs completion
// and records metrics. It must run after RequestID and RealIP.
func Observe(m Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chimw.GetReqID(r.Context())

			ctx, span := telemetry.StartHTTPSpan(r.Context(), r.Method,
				telemetry.RequestID(requestID),
				telemetry.ClientIP(r.RemoteAddr))
			defer span.End()

			lc := logger.NewLogContext(requestID, r.RemoteAddr).
				WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
			ctx = logger.WithContext(ctx, lc)

			if m != nil {
				m.InFlight(1)
				defer m.InFlight(-1)
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			duration := time.Since(start)

			span.SetAttributes(telemetry.HTTPRoute(route), telemetry.HTTPStatus(status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if m != nil {
				m.ObserveRequest(r.Method, route, status, duration)
			}

			args := []any{
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, status,
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, float64(duration.Microseconds()) / 1000,
			}
			// Probes and scrapes would drown everything else.
			if isQuietPath(r.URL.Path) {
				logger.DebugCtx(ctx, "API request completed", args...)
			} else {
				logger.InfoCtx(ctx, "API request completed", args...)
			}
		})
	}
}

// routePattern returns the chi route pattern, set once routing finished.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func isQuietPath(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}
