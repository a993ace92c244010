package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for rate limiting decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all rate limit metrics
// registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_ratelimit_decisions_total",
			Help: "Total rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}), // outcome: "allowed", "limited"
	}
}

func (m *Metrics) incrementDecision(class, outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(class, outcome).Inc()
	}
}
