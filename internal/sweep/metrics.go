package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance sweep.
type Metrics struct {
	// Completed sweep passes by outcome
	Sweeps *prometheus.CounterVec

	// Identity and scope pairs evaluated, by resulting state
	PairsEvaluated *prometheus.CounterVec

	// Wall time of a full sweep pass
	Duration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all sweep metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Sweeps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_sweep_runs_total",
			Help: "Total compliance sweep passes by outcome",
		}, []string{"outcome"}), // outcome: "completed", "failed"

		PairsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_sweep_pairs_evaluated_total",
			Help: "Total identity and scope pairs evaluated by the sweep, by state",
		}, []string{"state"}),

		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assent_sweep_duration_seconds",
			Help:    "Wall time of a full compliance sweep pass",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) incrementSweep(outcome string) {
	if m != nil {
		m.Sweeps.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) incrementPair(state string) {
	if m != nil {
		m.PairsEvaluated.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) observeDuration(seconds float64) {
	if m != nil {
		m.Duration.Observe(seconds)
	}
}
