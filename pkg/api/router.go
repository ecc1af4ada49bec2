package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittodrive/pkg/api/handlers"
	"github.com/marmos91/dittodrive/pkg/api/middleware"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// Dependencies are the collaborators the API serves.
type Dependencies struct {
	// Service is the drive service. Required.
	Service *drive.Service

	// Uploads runs uploads started through the API. Required.
	Uploads *drive.UploadManager

	// Identity signs users in and resolves bearer tokens. Required.
	Identity identity.Provider

	// Metrics records HTTP traffic. May be nil.
	Metrics Metrics
}

// NewRouter creates the chi router with middleware and routes.
//
// Middleware order: request id, real ip, span/log/metrics, panic recovery,
// request timeout.
//
// Routes:
//   - GET /health, /health/ready: probes
//   - GET /metrics: Prometheus scrape endpoint
//   - /api/v1/auth: login, logout, me
//   - /api/v1/folders, /api/v1/files, /api/v1/uploads: the drive (auth)
//   - GET /api/v1/share/{fileId}: shared file metadata (no auth)
func NewRouter(config APIConfig, deps Dependencies) http.Handler {
	config.ApplyDefaults()

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Observe(deps.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(config.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(deps.Service)
	authHandler := handlers.NewAuthHandler(deps.Identity)
	folderHandler := handlers.NewFolderHandler(deps.Service)
	fileHandler := handlers.NewFileHandler(deps.Service)
	uploadHandler := handlers.NewUploadHandler(deps.Service, deps.Uploads, config.MaxUploadSize.Int64())

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Get("/share/{fileId}", fileHandler.Shared)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(deps.Identity))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Route("/folders", func(r chi.Router) {
				r.Post("/", folderHandler.Create)
				r.Get("/{id}", folderHandler.Navigate)
				r.Patch("/{id}", folderHandler.Update)
				r.Delete("/{id}", folderHandler.Delete)
				r.Get("/{id}/breadcrumbs", folderHandler.Breadcrumbs)
				r.Post("/{id}/files", uploadHandler.Start)
			})

			r.Route("/files", func(r chi.Router) {
				r.Patch("/{id}", fileHandler.Update)
				r.Delete("/{id}", fileHandler.Delete)
			})

			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", uploadHandler.List)
				r.Get("/{id}", uploadHandler.Get)
				r.Delete("/{id}", uploadHandler.Delete)
			})
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}
