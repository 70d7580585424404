package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

type stubService struct {
	kpis       analytics.DashboardKPIs
	client     analytics.ClientAnalytics
	company    analytics.CompanyAnalytics
	err        error
	lastYear   int
	lastClient analytics.ClientAnalyticsFilter
	lastComp   analytics.CompanyAnalyticsFilter
}

func (s *stubService) GetDashboardKPIs(ctx context.Context, year int) (analytics.DashboardKPIs, error) {
	s.lastYear = year
	out := s.kpis
	out.Year = year
	return out, s.err
}

func (s *stubService) GetClientAnalytics(ctx context.Context, filter analytics.ClientAnalyticsFilter) (analytics.ClientAnalytics, error) {
	s.lastClient = filter
	return s.client, s.err
}

func (s *stubService) GetCompanyAnalytics(ctx context.Context, filter analytics.CompanyAnalyticsFilter) (analytics.CompanyAnalytics, error) {
	s.lastComp = filter
	return s.company, s.err
}

func newTestRouter(svc *stubService, exportLimit int) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, exportLimit)
	h.WithNow(func() time.Time { return time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)
	r.Route("/clients", h.MountClientRoutes)
	r.Route("/companies", h.MountCompanyRoutes)
	return r
}

func TestDashboardDefaultsToCurrentYear(t *testing.T) {
	svc := &stubService{kpis: analytics.DashboardKPIs{CurrentYTD: 350}}
	router := newTestRouter(svc, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2024, svc.lastYear)
	var body analytics.DashboardKPIs
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 350.0, body.CurrentYTD)
}

func TestDashboardRejectsInvalidYear(t *testing.T) {
	router := newTestRouter(&stubService{}, 0)
	for _, q := range []string{"abc", "12", "20245"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard?year="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Contains(t, rr.Body.String(), `"year"`)
	}
}

func TestDashboardServiceFailure(t *testing.T) {
	router := newTestRouter(&stubService{err: errors.New("db down")}, 0)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard?year=2023", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestCSVExport(t *testing.T) {
	svc := &stubService{kpis: analytics.DashboardKPIs{
		CurrentYTD: 1500.5,
		TopClients: []analytics.RankItem{{Name: "Bar Roma", Amount: 1500.5}},
	}}
	router := newTestRouter(svc, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?year=2023", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "revenue-dashboard-2023.csv")
	assert.Contains(t, rr.Body.String(), "Bar Roma,\"1.500,50\"")
}

func TestCSVExportIsRateLimited(t *testing.T) {
	router := newTestRouter(&stubService{}, 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// The JSON dashboard shares no limiter with the export.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientAnalyticsParsesFilters(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, 0)
	clientID, companyID := uuid.New(), uuid.New()

	url := fmt.Sprintf("/clients/%s/analytics?company_id=%s&channel=Food&year=2022", clientID, companyID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, clientID, svc.lastClient.ClientID)
	require.NotNil(t, svc.lastClient.CompanyID)
	assert.Equal(t, companyID, *svc.lastClient.CompanyID)
	assert.Equal(t, "Food", svc.lastClient.Dimension)
	assert.Equal(t, 2022, svc.lastClient.Year)
}

func TestCompanyAnalyticsDimensionParam(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, 0)
	companyID := uuid.New()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/companies/"+companyID.String()+"/analytics?dimension=GDO&channel=Horeca", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, companyID, svc.lastComp.CompanyID)
	assert.Nil(t, svc.lastComp.ClientID)
	assert.Equal(t, "GDO", svc.lastComp.Dimension)
	assert.Equal(t, 2024, svc.lastComp.Year)
}

func TestEntityAnalyticsErrors(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		err    error
		status int
	}{
		{"bad id", "/clients/not-a-uuid/analytics", nil, http.StatusBadRequest},
		{"bad counterpart", "/companies/" + uuid.NewString() + "/analytics?client_id=x", nil, http.StatusBadRequest},
		{"missing client", "/clients/" + uuid.NewString() + "/analytics", fmt.Errorf("client: %w", shared.ErrNotFound), http.StatusNotFound},
		{"timeout", "/companies/" + uuid.NewString() + "/analytics", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubService{err: tc.err}, 0)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, tc.status, rr.Code)
			assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/problem+json"))
		})
	}
}
