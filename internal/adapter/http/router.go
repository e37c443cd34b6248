package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/adapter/http/handler"
	"github.com/iho/dealsync/internal/adapter/http/middleware"
	"github.com/iho/dealsync/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	SyncHandler      *handler.SyncHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.Metrics)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/companies/{companyID}", func(r chi.Router) {
			var syncMiddleware []func(http.Handler) http.Handler
			if cfg.IdempotencyStore != nil {
				idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
				syncMiddleware = append(syncMiddleware, idempotency.Wrap)
			}
			r.With(syncMiddleware...).Post("/sync", cfg.SyncHandler.Sync)

			r.Get("/sync-runs", cfg.SyncHandler.ListRuns)
		})

		r.Post("/reference-cache/invalidate", cfg.SyncHandler.InvalidateReferences)
	})

	return r
}
