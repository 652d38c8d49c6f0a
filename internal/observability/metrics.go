// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	CandidatesFetched  prometheus.Counter
	CandidatesSkipped  *prometheus.CounterVec
	TokensDiscovered   prometheus.Counter
	DiscoveryRaces     prometheus.Counter
	EnrichmentOutcomes *prometheus.CounterVec

	// Sampling metrics
	SamplesRecorded      prometheus.Counter
	SnapshotsUnavailable prometheus.Counter
	TokensDied           *prometheus.CounterVec
	MonitoringTokens     prometheus.Gauge

	// Failure metrics
	UnitFailures *prometheus.CounterVec

	// Latency metrics
	UpstreamCallLatency *prometheus.HistogramVec
	StageDuration       *prometheus.HistogramVec

	// Cycle metrics
	CyclesTotal         *prometheus.CounterVec
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_lifecycle"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Discovery metrics
		CandidatesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_fetched_total",
			Help:      "Total number of candidate pairs returned by the discovery feed",
		}),
		CandidatesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_skipped_total",
			Help:      "Total number of candidate pairs skipped by reason",
		}, []string{"reason"}),
		TokensDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_discovered_total",
			Help:      "Total number of tokens inserted for monitoring",
		}),
		DiscoveryRaces: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "races_total",
			Help:      "Total number of inserts that lost a duplicate-address race",
		}),
		EnrichmentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "enrichment_outcomes_total",
			Help:      "Enrichment oracle outcomes by oracle and result",
		}, []string{"oracle", "result"}),

		// Sampling metrics
		SamplesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "samples_recorded_total",
			Help:      "Total number of market samples committed",
		}),
		SnapshotsUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "snapshots_unavailable_total",
			Help:      "Total number of tokens skipped because no snapshot was available",
		}),
		TokensDied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "tokens_died_total",
			Help:      "Total number of tokens retired by death reason",
		}, []string{"reason"}),
		MonitoringTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "monitoring_tokens",
			Help:      "Number of tokens in monitoring status at the start of the last sampling pass",
		}),

		UnitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "unit_failures_total",
			Help:      "Per-candidate or per-token failures by stage",
		}, []string{"stage"}),

		// Latency metrics
		UpstreamCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Upstream call latency in seconds by adapter and result",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter", "result"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),

		// Cycle metrics
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "cycles_total",
			Help:      "Total number of scheduler cycles by outcome",
		}, []string{"outcome"}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last fully successful cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordCandidatesFetched adds n to the fetched candidates counter.
func RecordCandidatesFetched(n int) {
	DefaultMetrics.CandidatesFetched.Add(float64(n))
}

// RecordCandidateSkipped increments the skipped counter for reason.
func RecordCandidateSkipped(reason string) {
	DefaultMetrics.CandidatesSkipped.WithLabelValues(reason).Inc()
}

// RecordTokenDiscovered increments the discovered tokens counter.
func RecordTokenDiscovered() {
	DefaultMetrics.TokensDiscovered.Inc()
}

// RecordDiscoveryRace increments the duplicate-insert race counter.
func RecordDiscoveryRace() {
	DefaultMetrics.DiscoveryRaces.Inc()
}

// RecordEnrichment records an oracle outcome (ok, missing, unavailable, unauthorized).
func RecordEnrichment(oracle, result string) {
	DefaultMetrics.EnrichmentOutcomes.WithLabelValues(oracle, result).Inc()
}

// RecordSample increments the committed samples counter.
func RecordSample() {
	DefaultMetrics.SamplesRecorded.Inc()
}

// RecordSnapshotUnavailable increments the unavailable snapshot counter.
func RecordSnapshotUnavailable() {
	DefaultMetrics.SnapshotsUnavailable.Inc()
}

// RecordDeath increments the died counter for reason.
func RecordDeath(reason string) {
	DefaultMetrics.TokensDied.WithLabelValues(reason).Inc()
}

// SetMonitoringTokens updates the monitoring tokens gauge.
func SetMonitoringTokens(n int) {
	DefaultMetrics.MonitoringTokens.Set(float64(n))
}

// RecordUnitFailure increments the per-unit failure counter for stage.
func RecordUnitFailure(stage string) {
	DefaultMetrics.UnitFailures.WithLabelValues(stage).Inc()
}

// RecordUpstreamCall records upstream call latency.
func RecordUpstreamCall(adapter, result string, d time.Duration) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(adapter, result).Observe(d.Seconds())
}

// RecordStage records a stage duration.
func RecordStage(stage string, d time.Duration) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCycle records a completed cycle by outcome. Successful cycles also
// advance the last-success timestamp.
func RecordCycle(outcome string, success bool, at time.Time) {
	DefaultMetrics.CyclesTotal.WithLabelValues(outcome).Inc()
	if success {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(at.Unix()))
	}
}
