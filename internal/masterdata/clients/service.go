package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// Invalidator drops cached analytics after a write that changes reported names.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service implements client management.
type Service struct {
	repo        Repository
	validate    *validator.Validate
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService wires the repository. invalidator and logger may be nil.
func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: coreshared.NewValidator(), invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Client, error) {
	if id == uuid.Nil {
		return Client{}, fmt.Errorf("client id: %w", coreshared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

// FindIDByName resolves a client id by trimmed, case-insensitive name.
func (s *Service) FindIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	c, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// CreateNamed creates an active client carrying only a name.
func (s *Service) CreateNamed(ctx context.Context, name string) (uuid.UUID, error) {
	c, err := s.Create(ctx, ClientRequest{Name: name})
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

func (s *Service) Create(ctx context.Context, req ClientRequest) (Client, error) {
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return Client{}, err
	}
	client := Client{IsActive: true}
	req.apply(&client)
	return s.repo.Create(ctx, client)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req ClientRequest) (Client, error) {
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return Client{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	req.apply(&current)
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Client{}, err
	}
	s.bump(ctx)
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (Client, error) {
	if id == uuid.Nil {
		return Client{}, fmt.Errorf("client id: %w", coreshared.ErrInvalidInput)
	}
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a client. Clients with revenue rows fail with ErrInUse.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("client id: %w", coreshared.ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("bump analytics cache", slog.Any("error", err))
	}
}
