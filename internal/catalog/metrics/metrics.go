package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy catalog.
type Metrics struct {
	// Catalog mutations by operation and outcome
	Operations *prometheus.CounterVec

	// Published versions currently live, by document kind
	PublishedVersions *prometheus.GaugeVec
}

// New creates a Metrics instance with all catalog metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_catalog_operations_total",
			Help: "Total catalog operations by operation and outcome",
		}, []string{"operation", "outcome"}), // operation: "create", "publish", "unpublish"

		PublishedVersions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "assent_catalog_published_versions",
			Help: "Number of currently published policy versions by document kind",
		}, []string{"kind"}),
	}
}

// IncrementOperation records a catalog mutation outcome.
func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
	}
}

// SetPublishedCount updates the live version gauge for a document kind.
func (m *Metrics) SetPublishedCount(kind string, count int) {
	if m != nil {
		m.PublishedVersions.WithLabelValues(kind).Set(float64(count))
	}
}
