package jobs

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup rebuilds cached analytics after revenue writes.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskIdempotencyCleanup prunes expired import idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// AnalyticsWarmupPayload lists the dashboard years to rebuild. An empty list
// means the current year only.
type AnalyticsWarmupPayload struct {
	Years []int `json:"years,omitempty"`
}

// NewAnalyticsWarmupTask builds a warmup task with a de-duplicated, sorted year list.
func NewAnalyticsWarmupTask(years []int) (*asynq.Task, error) {
	body, err := json.Marshal(AnalyticsWarmupPayload{Years: uniqueYears(years)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// IdempotencyCleanupPayload sets how long import keys are retained.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retain_hours"`
}

// NewIdempotencyCleanupTask builds the periodic key pruning task.
func NewIdempotencyCleanupTask(retain time.Duration) (*asynq.Task, error) {
	hours := int(retain / time.Hour)
	if hours <= 0 {
		hours = 24
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetainHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

func uniqueYears(years []int) []int {
	if len(years) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if y <= 0 {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
