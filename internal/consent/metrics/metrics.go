package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the public consent surface.
type Metrics struct {
	// Version resolutions by outcome
	Resolutions *prometheus.CounterVec

	// Compliance evaluations by resulting state
	Evaluations *prometheus.CounterVec

	// Acceptance submissions by outcome
	Acceptances *prometheus.CounterVec
}

// New creates a Metrics instance with all consent surface metrics registered.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_consent_resolutions_total",
			Help: "Total effective-version resolutions by outcome",
		}, []string{"outcome"}), // outcome: "resolved", "not_found", "error"

		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_consent_evaluations_total",
			Help: "Total compliance evaluations by resulting state",
		}, []string{"state"}),

		Acceptances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_consent_acceptances_total",
			Help: "Total acceptance submissions by outcome",
		}, []string{"outcome"}), // outcome: "recorded", "duplicate", "rejected", "error"
	}
}

// IncrementResolution records a version resolution outcome.
func (m *Metrics) IncrementResolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}

// IncrementEvaluation records the state a compliance check landed in.
func (m *Metrics) IncrementEvaluation(state string) {
	if m != nil {
		m.Evaluations.WithLabelValues(state).Inc()
	}
}

// IncrementAcceptance records an acceptance submission outcome.
func (m *Metrics) IncrementAcceptance(outcome string) {
	if m != nil {
		m.Acceptances.WithLabelValues(outcome).Inc()
	}
}
