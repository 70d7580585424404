package revenues

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/period"
	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/httpx"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// Handler serves /revenues.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list revenues failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       entries,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get revenue failed", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req RevenueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rev, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create revenue failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rev)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	var req RevenueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rev, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update revenue failed", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rev)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete revenue failed", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filter := ListFilter{
		Page:            page,
		PerPage:         perPage,
		ClientChannel:   strings.TrimSpace(q.Get("channel")),
		CompanyCategory: strings.TrimSpace(q.Get("category")),
	}
	for key, dst := range map[string]**uuid.UUID{"client_id": &filter.ClientID, "company_id": &filter.CompanyID} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return ListFilter{}, shared.ErrInvalidInput
		}
		*dst = &id
	}
	if raw := q.Get("from"); raw != "" {
		from, err := period.Normalize(raw)
		if err != nil {
			return ListFilter{}, shared.ErrInvalidInput
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := period.Normalize(raw)
		if err != nil {
			return ListFilter{}, shared.ErrInvalidInput
		}
		filter.To = to
	}
	return filter, nil
}
