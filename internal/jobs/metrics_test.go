package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("analytics:warmup").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("analytics:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("analytics:warmup")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestImportCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddImportRows("success", 8)
	m.AddImportRows("error", 2)
	m.AddImportRows("error", 0)
	m.IncImportBatch("completed")

	assert.Equal(t, 8.0, testutil.ToFloat64(m.importRows.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.importRows.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importBatches.WithLabelValues("completed")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.Equal(t, boom, m.Track("x").End(boom))
	m.AddImportRows("success", 3)
	m.IncImportBatch("fatal")
}
