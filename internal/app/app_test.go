package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/internal/observability"
	"github.com/revenue-dashboard/revenue-dashboard/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("ANALYTICS_CACHE_TTL", "2m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, 2*time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, 50000, cfg.ImportMaxRows)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")
	t.Setenv("IMPORT_MAX_ROWS", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestRuntimeTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestRouterOperationalEndpoints(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:     &Config{RateLimitPerMinute: 100},
		Metrics:    observability.NewMetrics(),
		DB:         stubPinger{err: errors.New("down")},
		JobHandler: jobs.NewHandler(nil, nil),
	})

	cases := map[string]int{
		"/healthz":       http.StatusOK,
		"/readyz":        http.StatusServiceUnavailable,
		"/metrics":       http.StatusOK,
		"/jobs/health":   http.StatusOK,
		"/api/dashboard": http.StatusNotFound,
	}
	for path, status := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, rr.Code, path)
	}
}

func TestRouterSetsSecurityHeaders(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{RateLimitPerMinute: 100}})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRouterRateLimit(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{RateLimitPerMinute: 2}})
	var last int
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
