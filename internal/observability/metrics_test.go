package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobAndImportMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := metrics.Jobs()
	require.NotNil(t, jobs)

	_ = jobs.Track("analytics:warmup").End(errors.New("redis down"))
	jobs.AddImportRows("success", 8)
	jobs.AddImportRows("error", 2)
	jobs.IncImportBatch("completed")

	body := scrape(t, metrics)
	assert.Contains(t, body, `revdash_jobs_total{job="analytics:warmup",status="failure"} 1`)
	assert.Contains(t, body, `revdash_jobs_failures_total{job="analytics:warmup"} 1`)
	assert.Contains(t, body, `revdash_import_rows_total{outcome="success"} 8`)
	assert.Contains(t, body, `revdash_import_rows_total{outcome="error"} 2`)
	assert.Contains(t, body, `revdash_import_batches_total{status="completed"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/dashboard")
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `revdash_http_requests_total{code="418",route="/api/dashboard"} 1`)
	assert.Contains(t, body, `revdash_http_request_duration_seconds_bucket{route="/api/dashboard"`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	metrics.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Nil(t, metrics.Jobs())

	rr = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
