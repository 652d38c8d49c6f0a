package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.CandidatesSkipped.WithLabelValues("age").Inc()
	m.CandidatesSkipped.WithLabelValues("age").Inc()
	m.TokensDied.WithLabelValues("low_volume").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensDied.WithLabelValues("low_volume")))

	count, err := testutil.GatherAndCount(reg, "test_discovery_candidates_skipped_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordCycle_LastSuccess(t *testing.T) {
	at := time.Unix(1700000000, 0)
	before := testutil.ToFloat64(DefaultMetrics.CyclesTotal.WithLabelValues("partial_failure"))

	RecordCycle("partial_failure", false, at)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.CyclesTotal.WithLabelValues("partial_failure")))

	RecordCycle("success", true, at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(DefaultMetrics.LastSuccessfulCycle))
}
