package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes used as the "outcome" label.
const (
	OutcomeAllowed   = "allowed"
	OutcomeDenied    = "denied"
	OutcomeUnbounded = "unbounded"
	OutcomeDegraded  = "degraded"
)

type Metrics struct {
	DecisionsTotal         *prometheus.CounterVec
	StoreErrorsTotal       *prometheus.CounterVec
	StoreLatencySeconds    prometheus.Histogram
	HitsRecordedTotal      prometheus.Counter
	HitRecordFailuresTotal prometheus.Counter
	ResetKeysTotal         prometheus.Counter
	TrackedKeys            prometheus.Gauge
	CleanupRunsTotal       *prometheus.CounterVec
	CleanupRemovedTotal    *prometheus.CounterVec
	CleanupDurationSeconds prometheus.Histogram
}

// New registers the rate limit collectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_decisions_total",
			Help: "Admission decisions by user type, endpoint category and outcome",
		}, []string{"user_type", "category", "outcome"}),
		StoreErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_store_errors_total",
			Help: "Counter store failures by kind (timeout or error)",
		}, []string{"kind"}),
		StoreLatencySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_ratelimit_store_latency_seconds",
			Help:    "Counter store round trip latency",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		HitsRecordedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_hits_recorded_total",
			Help: "Deny records appended to the hit log",
		}),
		HitRecordFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_hit_record_failures_total",
			Help: "Deny records that could not be appended to the hit log",
		}),
		ResetKeysTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_reset_keys_total",
			Help: "Counters removed by admin resets",
		}),
		TrackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_ratelimit_tracked_keys",
			Help: "Live counters seen by the last stats scan",
		}),
		CleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		CleanupRemovedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_cleanup_removed_total",
			Help: "Expired entries removed by the cleanup worker",
		}, []string{"store"}),
		CleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "gatekeeper_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
	}
}

func (m *Metrics) ObserveDecision(userType, category, outcome string) {
	m.DecisionsTotal.WithLabelValues(userType, category, outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors(kind string) {
	m.StoreErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveStoreLatency(seconds float64) {
	m.StoreLatencySeconds.Observe(seconds)
}

func (m *Metrics) IncrementHitsRecorded() {
	m.HitsRecordedTotal.Inc()
}

func (m *Metrics) IncrementHitRecordFailures() {
	m.HitRecordFailuresTotal.Inc()
}

func (m *Metrics) AddResetKeys(count int) {
	m.ResetKeysTotal.Add(float64(count))
}

func (m *Metrics) SetTrackedKeys(count int) {
	m.TrackedKeys.Set(float64(count))
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) AddCleanupRemoved(store string, count int) {
	m.CleanupRemovedTotal.WithLabelValues(store).Add(float64(count))
}

func (m *Metrics) ObserveCleanupDuration(durationSeconds float64) {
	m.CleanupDurationSeconds.Observe(durationSeconds)
}
