package revenues

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revenue-dashboard/revenue-dashboard/internal/period"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// Invalidator drops cached analytics after any revenue write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// RevenueRequest is the manual create/update payload.
type RevenueRequest struct {
	ClientID  uuid.UUID       `json:"client_id"`
	CompanyID uuid.UUID       `json:"company_id"`
	Period    string          `json:"period" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     *string         `json:"notes" validate:"omitempty,max=2000"`
}

// Service exposes manual revenue maintenance.
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
	return &Service{repo: repo, validate: shared.NewValidator(), invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	return s.repo.Get(ctx, id, false)
}

// Create writes a manual row. A second manual entry for the same client,
// company and month overwrites the first.
func (s *Service) Create(ctx context.Context, req RevenueRequest) (Revenue, error) {
	params, err := s.prepare(req)
	if err != nil {
		return Revenue{}, err
	}
	rev, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return Revenue{}, err
	}
	s.bump(ctx)
	return rev, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req RevenueRequest) (Revenue, error) {
	params, err := s.prepare(req)
	if err != nil {
		return Revenue{}, err
	}
	var updated Revenue
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, id, true)
		if err != nil {
			return err
		}
		rev := current.Revenue
		rev.ClientID = params.ClientID
		rev.CompanyID = params.CompanyID
		rev.Period = params.Period
		rev.Amount = params.Amount
		rev.Notes = params.Notes
		rev.Source = SourceManual
		rev.ImportBatchID = uuid.NullUUID{}
		updated, err = repo.Update(ctx, rev)
		return err
	})
	if err != nil {
		return Revenue{}, err
	}
	s.bump(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) prepare(req RevenueRequest) (UpsertParams, error) {
	if err := s.validate.Struct(req); err != nil {
		return UpsertParams{}, err
	}
	var problems []string
	if req.ClientID == uuid.Nil {
		problems = append(problems, "client_id is required")
	}
	if req.CompanyID == uuid.Nil {
		problems = append(problems, "company_id is required")
	}
	if req.Amount.IsNegative() {
		problems = append(problems, "amount must not be negative")
	}
	p, err := period.Normalize(req.Period)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return UpsertParams{}, fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return UpsertParams{
		ClientID:  req.ClientID,
		CompanyID: req.CompanyID,
		Period:    p,
		Amount:    req.Amount.Round(2),
		Source:    SourceManual,
		Notes:     shared.OptionalString(req.Notes),
	}, nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("bump analytics cache", slog.Any("error", err))
	}
}
