package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRoundBuckets covers stress rounds from a millisecond to a minute.
var DefaultRoundBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// StressMetrics records stress-run progress.
type StressMetrics struct {
	rounds   *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewStressMetrics creates stress metrics. Phases are labelled by the tree
// shape under test.
func NewStressMetrics() *StressMetrics {
	return &StressMetrics{
		rounds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "stress",
				Name:      "phase_duration_seconds",
				Help:      "Duration of one stress phase (build, verify or release).",
				Buckets:   DefaultRoundBuckets,
			},
			[]string{"shape", "phase"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "stress",
				Name:      "failures_total",
				Help:      "Stress rounds whose verification failed.",
			},
			[]string{"shape"},
		),
	}
}

// ObservePhase records how long one phase of a round took.
func (m *StressMetrics) ObservePhase(shape, phase string, d time.Duration) {
	m.rounds.WithLabelValues(shape, phase).Observe(d.Seconds())
}

// RecordFailure counts a failed round.
func (m *StressMetrics) RecordFailure(shape string) {
	m.failures.WithLabelValues(shape).Inc()
}

// Collectors returns the collectors to register.
func (m *StressMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.rounds, m.failures}
}
