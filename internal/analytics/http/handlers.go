package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics"
	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics/export"
	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/httpx"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

const (
	requestTimeout     = 5 * time.Second
	defaultExportLimit = 10
	minYear            = 1900
	maxYear            = 9999
)

// AnalyticsService defines the data contract used by the handler.
type AnalyticsService interface {
	GetDashboardKPIs(ctx context.Context, year int) (analytics.DashboardKPIs, error)
	GetClientAnalytics(ctx context.Context, filter analytics.ClientAnalyticsFilter) (analytics.ClientAnalytics, error)
	GetCompanyAnalytics(ctx context.Context, filter analytics.CompanyAnalyticsFilter) (analytics.CompanyAnalytics, error)
}

// Handler serves the dashboard and per-entity analytics as JSON.
type Handler struct {
	logger      *slog.Logger
	service     AnalyticsService
	exportLimit int
	csvPool     sync.Pool
	now         func() time.Time
}

// NewHandler constructs the analytics HTTP handler. exportLimit caps CSV
// exports per caller per minute; zero keeps the default.
func NewHandler(logger *slog.Logger, service AnalyticsService, exportLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exportLimit <= 0 {
		exportLimit = defaultExportLimit
	}
	h := &Handler{
		logger:      logger,
		service:     service,
		exportLimit: exportLimit,
		now:         time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := h.parseYear(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kpis, err := h.service.GetDashboardKPIs(ctx, year)
	if err != nil {
		h.handleServiceError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	year, err := h.parseYear(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kpis, err := h.service.GetDashboardKPIs(ctx, year)
	if err != nil {
		h.handleServiceError(w, "load dashboard", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteDashboardCSV(buf, kpis, export.DefaultLocale); err != nil {
		h.handleServerError(w, "write dashboard csv", err)
		return
	}

	filename := fmt.Sprintf("revenue-dashboard-%d.csv", kpis.Year)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleClientAnalytics(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	year, err := h.parseYear(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	companyID, err := parseOptionalUUID(r.URL.Query().Get("company_id"), "company_id")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.GetClientAnalytics(ctx, analytics.ClientAnalyticsFilter{
		ClientID:  clientID,
		CompanyID: companyID,
		Dimension: dimensionParam(r),
		Year:      year,
	})
	if err != nil {
		h.handleServiceError(w, "load client analytics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCompanyAnalytics(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	year, err := h.parseYear(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	clientID, err := parseOptionalUUID(r.URL.Query().Get("client_id"), "client_id")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.GetCompanyAnalytics(ctx, analytics.CompanyAnalyticsFilter{
		CompanyID: companyID,
		ClientID:  clientID,
		Dimension: dimensionParam(r),
		Year:      year,
	})
	if err != nil {
		h.handleServiceError(w, "load company analytics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// parseYear defaults to the current year when the parameter is absent.
func (h *Handler) parseYear(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return h.now().UTC().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < minYear || year > maxYear {
		return 0, validationError{field: "year"}
	}
	return year, nil
}

// channel is accepted as an alias of dimension on both entity pages.
func dimensionParam(r *http.Request) string {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("dimension")); v != "" {
		return v
	}
	return strings.TrimSpace(q.Get("channel"))
}

func parseUUIDParam(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, validationError{field: field}
	}
	return id, nil
}

func parseOptionalUUID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseUUIDParam(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		httpx.ValidationProblem(w, map[string]string{vErr.field: "is invalid"})
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidInput):
		httpx.RespondError(w, err)
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "analytics query timed out")
	default:
		h.handleServerError(w, op, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
