package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics"
	jobmetrics "github.com/revenue-dashboard/revenue-dashboard/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupYearTimeout = 20 * time.Second

// DashboardLoader is the analytics read the warmup drives through the cache.
type DashboardLoader interface {
	GetDashboardKPIs(ctx context.Context, year int) (analytics.DashboardKPIs, error)
}

// AnalyticsWarmupJob repopulates dashboard cache entries after a version bump.
type AnalyticsWarmupJob struct {
	Analytics DashboardLoader
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(loader DashboardLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: loader,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskAnalyticsWarmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("analytics warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	years := j.targetYears(payload.Years, now)
	logger := j.logger().With(slog.Any("years", years))
	logger.Info("starting analytics warmup")

	for _, year := range years {
		if err := j.warmYear(ctx, year); err != nil {
			resultErr = err
			logger.Error("warm dashboard year", slog.Int("year", year), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed analytics warmup", slog.Int("years", len(years)), slog.Duration("duration", time.Since(now)))
	return resultErr
}

// targetYears expands touched years with the following year, whose
// year-over-year comparison reads them. Future years are dropped.
func (j *AnalyticsWarmupJob) targetYears(touched []int, now time.Time) []int {
	current := now.Year()
	if len(touched) == 0 {
		return []int{current}
	}
	expanded := make([]int, 0, len(touched)*2)
	for _, y := range touched {
		expanded = append(expanded, y, y+1)
	}
	out := make([]int, 0, len(expanded))
	for _, y := range uniqueYears(expanded) {
		if y <= current {
			out = append(out, y)
		}
	}
	return out
}

func (j *AnalyticsWarmupJob) warmYear(ctx context.Context, year int) error {
	yearCtx, cancel := context.WithTimeout(ctx, warmupYearTimeout)
	defer cancel()
	_, err := j.Analytics.GetDashboardKPIs(yearCtx, year)
	return err
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
