package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/revenue-dashboard/revenue-dashboard/internal/analytics/http"
	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/clients"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/companies"
	"github.com/revenue-dashboard/revenue-dashboard/internal/observability"
	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/httpx"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
	"github.com/revenue-dashboard/revenue-dashboard/jobs"
)

// Pinger reports backing store reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers leave their routes unmounted.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	DB               Pinger
	ClientHandler    *clients.Handler
	CompanyHandler   *companies.Handler
	RevenueHandler   *revenues.Handler
	ImportHandler    *imports.Handler
	AnalyticsHandler *analytichttp.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi router with the JSON API under /api.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.DB.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(api chi.Router) {
		if params.AnalyticsHandler != nil {
			params.AnalyticsHandler.MountRoutes(api)
		}
		if params.ClientHandler != nil {
			api.Route("/clients", func(cr chi.Router) {
				params.ClientHandler.MountRoutes(cr)
				params.AnalyticsHandler.MountClientRoutes(cr)
			})
		}
		if params.CompanyHandler != nil {
			api.Route("/companies", func(cr chi.Router) {
				params.CompanyHandler.MountRoutes(cr)
				params.AnalyticsHandler.MountCompanyRoutes(cr)
			})
		}
		if params.RevenueHandler != nil {
			api.Route("/revenues", params.RevenueHandler.MountRoutes)
		}
		if params.ImportHandler != nil {
			api.Route("/imports", params.ImportHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	return r
}
