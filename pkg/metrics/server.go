package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/dittodrive/internal/httpserver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the registry over HTTP at /metrics.
type Server struct {
	http  *http.Server
	port  int
	grace time.Duration
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	Port            int           // 9090
	ShutdownTimeout time.Duration // httpserver.DefaultGrace
}

func (c *ServerConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 9090
	}
}

// Handler returns the /metrics handler for the global registry. When
// metrics are disabled it answers 503.
func Handler() http.Handler {
	if reg := GetRegistry(); reg != nil {
		return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Metrics collection is disabled", http.StatusServiceUnavailable)
	})
}

// NewServer creates a metrics server. Nothing listens until Start.
func NewServer(config ServerConfig) *Server {
	config.applyDefaults()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "dittodrive metrics are served at /metrics")
	})

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		port:  config.Port,
		grace: config.ShutdownTimeout,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	return httpserver.Run(ctx, "Metrics", s.http, s.grace, nil)
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.port
}
