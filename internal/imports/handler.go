package imports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/httpx"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

const idempotencyModule = "imports"

// IdempotencyGuard deduplicates POSTs carrying an Idempotency-Key header.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// ImportRequest is the JSON body of POST /imports.
type ImportRequest struct {
	Filename string   `json:"filename"`
	Rows     []RawRow `json:"rows"`
}

// Handler serves import submission and history.
type Handler struct {
	service     *Service
	idempotency IdempotencyGuard
	logger      *slog.Logger
}

func NewHandler(service *Service, idempotency IdempotencyGuard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, idempotency: idempotency, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		req.Filename = "upload.csv"
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if !errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Error("idempotency check", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
	}

	result, err := h.service.ImportRows(r.Context(), req.Rows, req.Filename)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(context.WithoutCancel(r.Context()), key, idempotencyModule); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		if errors.Is(err, ErrFatalBatch) {
			h.logger.Error("import failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Import Failed", ErrFatalBatch.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filter := BatchFilter{Page: page, PerPage: perPage}
	batches, total, err := h.service.ListBatches(r.Context(), filter)
	if err != nil {
		h.logger.Error("list import batches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       batches,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		h.logger.Error("get import batch", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}
