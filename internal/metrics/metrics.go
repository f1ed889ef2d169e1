// Package metrics holds the prometheus collectors of the registry daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. Construct with New so tests can use their own registry.
type Metrics struct {
	// Operations counts mutations by kind and result ("ok" or the error kind).
	Operations *prometheus.CounterVec
	// Live is the number of live entities by type: posts, comments, likes, authors.
	Live *prometheus.GaugeVec
	// ReplayedOperations counts journal entries applied at start.
	ReplayedOperations prometheus.Counter
	// PublishFailures counts operations that could not be fanned out.
	PublishFailures prometheus.Counter
	// EventSubscribers is the number of connected /events streams.
	EventSubscribers prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_operations_total",
			Help: "Total number of registry mutations by kind and result",
		}, []string{"kind", "result"}),
		Live: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "registry_live_entities",
			Help: "Number of live entities by type",
		}, []string{"type"}),
		ReplayedOperations: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_replayed_operations_total",
			Help: "Total number of journal operations replayed at start",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_publish_failures_total",
			Help: "Total number of operations that failed to publish",
		}),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_event_subscribers",
			Help: "Number of connected operation stream subscribers",
		}),
	}
}

// SetLive records entity counts.
func (m *Metrics) SetLive(posts, comments, likes, authors int) {
	m.Live.WithLabelValues("posts").Set(float64(posts))
	m.Live.WithLabelValues("comments").Set(float64(comments))
	m.Live.WithLabelValues("likes").Set(float64(likes))
	m.Live.WithLabelValues("authors").Set(float64(authors))
}
