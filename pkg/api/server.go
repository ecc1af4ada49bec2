package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/marmos91/dittodrive/internal/httpserver"
)

// Server serves the HTTP API.
type Server struct {
	http   *http.Server
	config APIConfig

	mu   sync.Mutex
	addr net.Addr
}

// NewServer builds the router for deps. Nothing listens until Start.
func NewServer(config APIConfig, deps Dependencies) *Server {
	config.ApplyDefaults()
	return &Server{
		config: config,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewRouter(config, deps),
			ReadHeaderTimeout: config.ReadTimeout,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// up to ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	return httpserver.Run(ctx, "API", s.http, s.config.ShutdownTimeout, func(a net.Addr) {
		s.mu.Lock()
		s.addr = a
		s.mu.Unlock()
	})
}

// Port returns the bound port once listening, else the configured one.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tcp, ok := s.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.config.Port
}
