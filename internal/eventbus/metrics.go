package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the event bus.
type Metrics struct {
	Published          *prometheus.CounterVec
	Rejected           *prometheus.CounterVec
	SubscriberFailures *prometheus.CounterVec
}

// NewMetrics creates and registers the event bus metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_eventbus_published_total",
			Help: "Total number of events delivered to subscribers, by event type",
		}, []string{"event_type"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_eventbus_rejected_total",
			Help: "Total number of publishes rejected by schema validation, by event type",
		}, []string{"event_type"}),
		SubscriberFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_eventbus_subscriber_failures_total",
			Help: "Total number of subscriber errors or panics, by event type",
		}, []string{"event_type"}),
	}
}

func (m *Metrics) incPublished(eventType string) {
	if m != nil {
		m.Published.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) incRejected(eventType string) {
	if m != nil {
		m.Rejected.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) incSubscriberFailure(eventType string) {
	if m != nil {
		m.SubscriberFailures.WithLabelValues(eventType).Inc()
	}
}
