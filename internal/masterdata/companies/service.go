package companies

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

var errInvalidID = errors.New("invalid company ID")

// Invalidator drops cached analytics after renames and deletes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo        Repository
	validate    *validator.Validate
	invalidator Invalidator
	logger      *slog.Logger
}

func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: coreshared.NewValidator(), invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Company, error) {
	if id == uuid.Nil {
		return Company{}, errors.Join(errInvalidID, coreshared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) FindIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	c, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

func (s *Service) CreateNamed(ctx context.Context, name string) (uuid.UUID, error) {
	c, err := s.Create(ctx, CompanyRequest{Name: name})
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

func (s *Service) Create(ctx context.Context, req CompanyRequest) (Company, error) {
	if err := s.validateRequest(&req); err != nil {
		return Company{}, err
	}
	company := Company{IsActive: true}
	applyRequest(&company, req)
	return s.repo.Create(ctx, company)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req CompanyRequest) (Company, error) {
	if err := s.validateRequest(&req); err != nil {
		return Company{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	applyRequest(&current, req)
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Company{}, err
	}
	s.bump(ctx)
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (Company, error) {
	if id == uuid.Nil {
		return Company{}, errors.Join(errInvalidID, coreshared.ErrInvalidInput)
	}
	return s.repo.SetActive(ctx, id, active)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.Join(errInvalidID, coreshared.ErrInvalidInput)
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
