package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/clients"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/companies"
	mdshared "github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
	"github.com/revenue-dashboard/revenue-dashboard/internal/period"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// Repository lists joined revenue rows.
type Repository interface {
	ListEntries(ctx context.Context, filter revenues.ListFilter) ([]revenues.Entry, error)
}

type ClientReader interface {
	Get(ctx context.Context, id uuid.UUID) (clients.Client, error)
}

type CompanyReader interface {
	Get(ctx context.Context, id uuid.UUID) (companies.Company, error)
}

// Service coordinates revenue reads, aggregation and the cache layer.
type Service struct {
	repo      Repository
	clients   ClientReader
	companies CompanyReader
	cache     *Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the readers with an optional Cache helper.
func NewService(repo Repository, clientReader ClientReader, companyReader CompanyReader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		clients:   clientReader,
		companies: companyReader,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// DashboardKPIs is the company-wide dashboard.
type DashboardKPIs struct {
	Year              int          `json:"year"`
	CurrentYTD        float64      `json:"current_ytd"`
	PreviousYTD       float64      `json:"previous_ytd"`
	PreviousYearTotal float64      `json:"previous_year_total"`
	Delta             float64      `json:"delta"`
	DeltaPercentage   float64      `json:"delta_percentage"`
	MonthlyTrend      []MonthPoint `json:"monthly_trend"`
	AnnualTrend       []YearPoint  `json:"annual_trend"`
	TopClients        []RankItem   `json:"top_clients"`
	TopCompanies      []RankItem   `json:"top_companies"`
	Skipped           int          `json:"skipped"`
}

// ClientAnalyticsFilter scopes one client's page. Dimension narrows by company category.
type ClientAnalyticsFilter struct {
	ClientID  uuid.UUID
	CompanyID *uuid.UUID
	Dimension string
	Year      int
}

// CompanyAnalyticsFilter scopes one company's page. Dimension narrows by client channel.
type CompanyAnalyticsFilter struct {
	CompanyID uuid.UUID
	ClientID  *uuid.UUID
	Dimension string
	Year      int
}

// Figures are the per-entity aggregates shared by the client and company pages.
type Figures struct {
	Year              int          `json:"year"`
	LifetimeValue     float64      `json:"lifetime_value"`
	CurrentYTD        float64      `json:"current_ytd"`
	PreviousYTD       float64      `json:"previous_ytd"`
	PreviousYearTotal float64      `json:"previous_year_total"`
	Delta             float64      `json:"delta"`
	DeltaPercentage   float64      `json:"delta_percentage"`
	MonthlyTrend      []MonthPoint `json:"monthly_trend"`
	AnnualTrend       []YearPoint  `json:"annual_trend"`
	Skipped           int          `json:"skipped"`
}

type ClientAnalytics struct {
	Client clients.Client `json:"client"`
	Figures
	CompanyMix []MixItem `json:"company_mix"`
}

type CompanyAnalytics struct {
	Company companies.Company `json:"company"`
	Figures
	ClientMix []MixItem `json:"client_mix"`
}

// GetDashboardKPIs aggregates the selected year against the previous one,
// reading the five-year window the annual trend needs.
func (s *Service) GetDashboardKPIs(ctx context.Context, year int) (DashboardKPIs, error) {
	now := s.now()
	year = s.resolveYear(year, now)
	loader := func(ctx context.Context) (interface{}, error) {
		from, to := period.YearBounds(year-AnnualWindow+1, year)
		entries, err := s.repo.ListEntries(ctx, revenues.ListFilter{From: from, To: to})
		if err != nil {
			return DashboardKPIs{}, fmt.Errorf("analytics: dashboard revenues: %w", err)
		}
		res := Aggregate(entries, Options{SelectedYear: year, Now: now, Dimension: DimensionClient, Logger: s.logger})
		return DashboardKPIs{
			Year:              res.SelectedYear,
			CurrentYTD:        res.CurrentYTD,
			PreviousYTD:       res.PreviousYTD,
			PreviousYearTotal: res.PreviousYearTotal,
			Delta:             res.Delta,
			DeltaPercentage:   res.DeltaPercentage,
			MonthlyTrend:      res.MonthlyTrend,
			AnnualTrend:       res.AnnualTrend,
			TopClients:        res.TopClients,
			TopCompanies:      res.TopCompanies,
			Skipped:           res.Skipped,
		}, nil
	}
	var out DashboardKPIs
	if err := s.cached(ctx, keyDashboard(year, now), &out, loader); err != nil {
		return DashboardKPIs{}, err
	}
	return out, nil
}

// GetClientAnalytics returns one client's figures with the mix broken down by company.
func (s *Service) GetClientAnalytics(ctx context.Context, filter ClientAnalyticsFilter) (ClientAnalytics, error) {
	if filter.ClientID == uuid.Nil {
		return ClientAnalytics{}, fmt.Errorf("client id: %w", shared.ErrInvalidInput)
	}
	now := s.now()
	year := s.resolveYear(filter.Year, now)
	dimension := mdshared.Normalise(strings.TrimSpace(filter.Dimension))

	loader := func(ctx context.Context) (interface{}, error) {
		var client clients.Client
		var entries []revenues.Entry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			c, err := s.clients.Get(gctx, filter.ClientID)
			client = c
			return err
		})
		g.Go(func() error {
			id := filter.ClientID
			rows, err := s.repo.ListEntries(gctx, revenues.ListFilter{
				ClientID:        &id,
				CompanyID:       filter.CompanyID,
				CompanyCategory: dimension,
			})
			entries = rows
			return err
		})
		if err := g.Wait(); err != nil {
			return ClientAnalytics{}, err
		}
		res := Aggregate(entries, Options{SelectedYear: year, Now: now, Dimension: DimensionCompany, Logger: s.logger})
		return ClientAnalytics{Client: client, Figures: figures(res), CompanyMix: res.Mix}, nil
	}

	var out ClientAnalytics
	key := keyEntity("client", filter.ClientID, filter.CompanyID, dimension, year, now)
	if err := s.cached(ctx, key, &out, loader); err != nil {
		return ClientAnalytics{}, err
	}
	return out, nil
}

// GetCompanyAnalytics returns one company's figures with the mix broken down by client.
func (s *Service) GetCompanyAnalytics(ctx context.Context, filter CompanyAnalyticsFilter) (CompanyAnalytics, error) {
	if filter.CompanyID == uuid.Nil {
		return CompanyAnalytics{}, fmt.Errorf("company id: %w", shared.ErrInvalidInput)
	}
	now := s.now()
	year := s.resolveYear(filter.Year, now)
	dimension := mdshared.Normalise(strings.TrimSpace(filter.Dimension))

	loader := func(ctx context.Context) (interface{}, error) {
		var company companies.Company
		var entries []revenues.Entry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			c, err := s.companies.Get(gctx, filter.CompanyID)
			company = c
			return err
		})
		g.Go(func() error {
			id := filter.CompanyID
			rows, err := s.repo.ListEntries(gctx, revenues.ListFilter{
				CompanyID:     &id,
				ClientID:      filter.ClientID,
				ClientChannel: dimension,
			})
			entries = rows
			return err
		})
		if err := g.Wait(); err != nil {
			return CompanyAnalytics{}, err
		}
		res := Aggregate(entries, Options{SelectedYear: year, Now: now, Dimension: DimensionClient, Logger: s.logger})
		return CompanyAnalytics{Company: company, Figures: figures(res), ClientMix: res.Mix}, nil
	}

	var out CompanyAnalytics
	key := keyEntity("company", filter.CompanyID, filter.ClientID, dimension, year, now)
	if err := s.cached(ctx, key, &out, loader); err != nil {
		return CompanyAnalytics{}, err
	}
	return out, nil
}

func (s *Service) resolveYear(year int, now time.Time) int {
	if year <= 0 {
		return now.Year()
	}
	return year
}

func (s *Service) cached(ctx context.Context, keyBase string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		s.logger.Warn("analytics cache unavailable", slog.Any("error", err))
		var uncached *Cache
		return uncached.FetchJSON(ctx, keyBase, dest, loader)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func figures(res Result) Figures {
	return Figures{
		Year:              res.SelectedYear,
		LifetimeValue:     res.LifetimeValue,
		CurrentYTD:        res.CurrentYTD,
		PreviousYTD:       res.PreviousYTD,
		PreviousYearTotal: res.PreviousYearTotal,
		Delta:             res.Delta,
		DeltaPercentage:   res.DeltaPercentage,
		MonthlyTrend:      res.MonthlyTrend,
		AnnualTrend:       res.AnnualTrend,
		Skipped:           res.Skipped,
	}
}

// Keys carry the current month because the YTD window moves with it.
func keyDashboard(year int, now time.Time) string {
	return strings.Join([]string{"analytics", "dashboard", strconv.Itoa(year), now.Format("200601")}, ":")
}

func keyEntity(kind string, id uuid.UUID, other *uuid.UUID, dimension string, year int, now time.Time) string {
	otherToken := "-"
	if other != nil {
		otherToken = other.String()
	}
	dimToken := dimension
	if dimToken == "" {
		dimToken = mdshared.DimensionAll
	}
	return strings.Join([]string{"analytics", kind, id.String(), otherToken, dimToken, strconv.Itoa(year), now.Format("200601")}, ":")
}
