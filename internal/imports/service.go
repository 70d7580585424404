package imports

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	jobmetrics "github.com/revenue-dashboard/revenue-dashboard/internal/jobs"
	"github.com/revenue-dashboard/revenue-dashboard/internal/period"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// ClientDirectory finds or creates clients by name. FindIDByName returns
// shared.ErrNotFound when no client matches.
type ClientDirectory interface {
	FindIDByName(ctx context.Context, name string) (uuid.UUID, error)
	CreateNamed(ctx context.Context, name string) (uuid.UUID, error)
}

// CompanyDirectory finds or creates companies by name.
type CompanyDirectory interface {
	FindIDByName(ctx context.Context, name string) (uuid.UUID, error)
	CreateNamed(ctx context.Context, name string) (uuid.UUID, error)
}

// RevenueWriter upserts on (client, company, period).
type RevenueWriter interface {
	Upsert(ctx context.Context, params revenues.UpsertParams) (revenues.Revenue, error)
}

// BatchRepository persists import batches. Finish is called exactly once per batch.
type BatchRepository interface {
	Create(ctx context.Context, batch Batch) error
	Finish(ctx context.Context, id uuid.UUID, stats Stats, report []RowError) error
	List(ctx context.Context, filter BatchFilter) ([]Batch, int, error)
	Get(ctx context.Context, id uuid.UUID) (Batch, error)
}

// Invalidator drops cached analytics.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// WarmupEnqueuer schedules analytics cache warmup for the given years.
type WarmupEnqueuer interface {
	EnqueueAnalyticsWarmup(ctx context.Context, years []int) error
}

// Options carries optional collaborators.
type Options struct {
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Invalidator Invalidator
	Warmup      WarmupEnqueuer
	// MaxRows rejects larger submissions up front. Zero disables the limit.
	MaxRows int
}

// Service runs imports.
type Service struct {
	clients   ClientDirectory
	companies CompanyDirectory
	revenues  RevenueWriter
	batches   BatchRepository
	opts      Options
	now       func() time.Time
}

func NewService(clients ClientDirectory, companies CompanyDirectory, revenueWriter RevenueWriter, batches BatchRepository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		clients:   clients,
		companies: companies,
		revenues:  revenueWriter,
		batches:   batches,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImportRows records a batch, then attempts every row in order. A row failure
// is recorded in the report and never aborts the batch. The only returned
// error is a *FatalBatchError (or ErrTooManyRows before anything is written).
func (s *Service) ImportRows(ctx context.Context, rows []RawRow, filename string) (Result, error) {
	if s.opts.MaxRows > 0 && len(rows) > s.opts.MaxRows {
		return Result{}, fmt.Errorf("%w: %d rows, limit is %d", ErrTooManyRows, len(rows), s.opts.MaxRows)
	}

	batch := Batch{
		ID:         uuid.New(),
		Filename:   strings.TrimSpace(filename),
		Checksum:   Checksum(rows),
		ImportedAt: s.now(),
		TotalRows:  len(rows),
	}
	logger := s.opts.Logger.With(slog.String("batch_id", batch.ID.String()), slog.String("filename", batch.Filename))

	if err := s.batches.Create(ctx, batch); err != nil {
		s.opts.Metrics.IncImportBatch("fatal")
		logger.Error("create import batch", slog.Any("error", err))
		return Result{}, &FatalBatchError{Err: err}
	}

	res := newResolver(s.clients, s.companies)
	stats := Stats{Total: len(rows)}
	var report []RowError
	years := make(map[int]struct{})
	for i, row := range rows {
		p, err := s.importRow(ctx, res, batch.ID, row)
		if err != nil {
			stats.Errors++
			report = append(report, RowError{Row: i + 2, Data: row, Error: err.Error()})
			continue
		}
		stats.Success++
		years[p.Year()] = struct{}{}
	}

	// Rows are durable at this point; a late cancellation must not lose the summary.
	finishCtx := context.WithoutCancel(ctx)
	if err := s.batches.Finish(finishCtx, batch.ID, stats, report); err != nil {
		logger.Error("finish import batch", slog.Any("error", err))
	}

	s.opts.Metrics.AddImportRows("success", stats.Success)
	s.opts.Metrics.AddImportRows("error", stats.Errors)
	s.opts.Metrics.IncImportBatch("completed")
	logger.Info("import completed",
		slog.Int("total", stats.Total), slog.Int("success", stats.Success), slog.Int("errors", stats.Errors))

	if stats.Success > 0 {
		s.afterWrite(finishCtx, logger, years)
	}
	return Result{BatchID: batch.ID, Stats: stats, ErrorReport: report}, nil
}

func (s *Service) importRow(ctx context.Context, res *resolver, batchID uuid.UUID, row RawRow) (time.Time, error) {
	clientName := strings.TrimSpace(row.ClientName)
	companyName := strings.TrimSpace(row.CompanyName)
	if clientName == "" || companyName == "" || strings.TrimSpace(row.Period) == "" || strings.TrimSpace(row.Amount) == "" {
		return time.Time{}, ErrMissingFields
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return time.Time{}, err
	}
	p, err := period.Normalize(row.Period)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, strings.TrimSpace(row.Period))
	}
	clientID, err := res.resolve(ctx, "client", clientName)
	if err != nil {
		return time.Time{}, err
	}
	companyID, err := res.resolve(ctx, "company", companyName)
	if err != nil {
		return time.Time{}, err
	}
	_, err = s.revenues.Upsert(ctx, revenues.UpsertParams{
		ClientID:      clientID,
		CompanyID:     companyID,
		Period:        p,
		Amount:        amount,
		Source:        revenues.SourceImport,
		ImportBatchID: uuid.NullUUID{UUID: batchID, Valid: true},
	})
	if err != nil {
		return time.Time{}, &UpsertError{Err: err}
	}
	return p, nil
}

func (s *Service) afterWrite(ctx context.Context, logger *slog.Logger, touched map[int]struct{}) {
	if s.opts.Invalidator != nil {
		if err := s.opts.Invalidator.Bump(ctx); err != nil {
			logger.Warn("bump analytics cache", slog.Any("error", err))
		}
	}
	if s.opts.Warmup == nil {
		return
	}
	years := make([]int, 0, len(touched))
	for y := range touched {
		years = append(years, y)
	}
	sort.Ints(years)
	if err := s.opts.Warmup.EnqueueAnalyticsWarmup(ctx, years); err != nil {
		logger.Warn("enqueue analytics warmup", slog.Any("error", err))
	}
}

func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, int, error) {
	return s.batches.List(ctx, filter)
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (Batch, error) {
	if id == uuid.Nil {
		return Batch{}, fmt.Errorf("batch id: %w", shared.ErrInvalidInput)
	}
	return s.batches.Get(ctx, id)
}

// Checksum fingerprints the submitted rows.
func Checksum(rows []RawRow) string {
	digest := xxhash.New()
	for _, row := range rows {
		_, _ = digest.WriteString(strings.Join([]string{row.Period, row.ClientName, row.CompanyName, row.Amount}, ";"))
		_, _ = digest.WriteString("\n")
	}
	return hex.EncodeToString(digest.Sum(nil))
}
