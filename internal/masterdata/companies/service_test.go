package companies

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

type stubRepo struct {
	items   map[uuid.UUID]Company
	lastSet *bool
	deleted []uuid.UUID
	listArg shared.ListFilters
}

func newStubRepo() *stubRepo { return &stubRepo{items: map[uuid.UUID]Company{}} }

func (s *stubRepo) List(_ context.Context, f shared.ListFilters) ([]Company, int, error) {
	s.listArg = f
	out := make([]Company, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (s *stubRepo) Get(_ context.Context, id uuid.UUID) (Company, error) {
	c, ok := s.items[id]
	if !ok {
		return Company{}, coreshared.ErrNotFound
	}
	return c, nil
}

func (s *stubRepo) FindByName(_ context.Context, name string) (Company, error) {
	for _, c := range s.items {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Company{}, coreshared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, c Company) (Company, error) {
	c.ID = uuid.New()
	s.items[c.ID] = c
	return c, nil
}

func (s *stubRepo) Update(_ context.Context, c Company) (Company, error) {
	s.items[c.ID] = c
	return c, nil
}

func (s *stubRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (Company, error) {
	c, ok := s.items[id]
	if !ok {
		return Company{}, coreshared.ErrNotFound
	}
	s.lastSet = &active
	c.IsActive = active
	s.items[id] = c
	return c, nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.items, id)
	return nil
}

func TestServiceCreateAndFind(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil)
	ctx := context.Background()

	category := " Food "
	c, err := svc.Create(ctx, CompanyRequest{Name: " Mandante Uno ", Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Mandante Uno", c.Name)
	assert.Equal(t, "Food", *c.Category)
	assert.True(t, c.IsActive)

	id, err := svc.FindIDByName(ctx, "mandante uno")
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	_, err = svc.Create(ctx, CompanyRequest{})
	require.Error(t, err)
}

func TestServiceRejectsNilID(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil)
	_, err := svc.Get(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, coreshared.ErrInvalidInput)
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.Nil), coreshared.ErrInvalidInput)
}

func TestHandlerListPassesCategory(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)
	_, err := svc.CreateNamed(context.Background(), "Alfa")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/companies", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/companies?category=Food&page=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Food", repo.listArg.Dimension)
	assert.Contains(t, rr.Body.String(), `"name":"Alfa"`)
	assert.Contains(t, rr.Body.String(), `"total":1`)
}

func TestHandlerToggleAndDelete(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)
	id, err := svc.CreateNamed(context.Background(), "Beta")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/companies", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/companies/"+id.String()+"/active", bytes.NewBufferString(`{"is_active":false}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, repo.lastSet)
	assert.False(t, *repo.lastSet)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/companies/"+id.String(), nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []uuid.UUID{id}, repo.deleted)
}
