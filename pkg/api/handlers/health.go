package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// HealthHandler serves the unauthenticated health endpoints.
type HealthHandler struct {
	service *drive.Service
	timeout time.Duration
}

// NewHealthHandler creates a health handler. service may be nil, in which
// case readiness reports unhealthy.
func NewHealthHandler(service *drive.Service) *HealthHandler {
	return &HealthHandler{service: service, timeout: 5 * time.Second}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "dittodrive",
	}))
}

// Readiness handles GET /health/ready. It checks the metadata store and the
// blob store.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("drive service not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.service.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"latency": time.Since(start).String(),
	}))
}
