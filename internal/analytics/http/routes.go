package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the company-wide dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/dashboard/export.csv", h.handleCSV)
	})
}

// MountClientRoutes registers the per-client page under an existing /clients route.
func (h *Handler) MountClientRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/{id}/analytics", h.handleClientAnalytics)
}

// MountCompanyRoutes registers the per-company page under an existing /companies route.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/{id}/analytics", h.handleCompanyAnalytics)
}

// Identity lives upstream, so exports are throttled per caller address.
func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
