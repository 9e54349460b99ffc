package notification

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"engage/internal/eventbus"
	"engage/internal/events"
)

// Analytics counts delivered domain events by type and source, and totals
// recognition points moved.
type Analytics struct {
	Events            *prometheus.CounterVec
	RecognitionPoints *prometheus.CounterVec
}

// NewAnalytics creates and registers the analytics counters on reg.
func NewAnalytics(reg prometheus.Registerer) *Analytics {
	f := promauto.With(reg)
	return &Analytics{
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_domain_events_total",
			Help: "Total number of domain events observed, by type and source",
		}, []string{"event_type", "source"}),
		RecognitionPoints: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_recognition_points_total",
			Help: "Total recognition points, by outcome",
		}, []string{"outcome"}),
	}
}

// Attach subscribes to every event type in eventTypes.
func (a *Analytics) Attach(bus *eventbus.Bus, eventTypes ...string) eventbus.Unsubscribe {
	name := eventbus.Named("analytics")
	unsubs := make([]eventbus.Unsubscribe, 0, len(eventTypes)+2)
	for _, t := range eventTypes {
		unsubs = append(unsubs, bus.Subscribe(t, a.count, name))
	}
	unsubs = append(unsubs,
		eventbus.SubscribeTyped(bus, events.TypeRecognitionApproved, func(_ context.Context, _ eventbus.Envelope, p events.RecognitionApproved) error {
			a.RecognitionPoints.WithLabelValues("approved").Add(float64(p.Points))
			return nil
		}, name),
		eventbus.SubscribeTyped(bus, events.TypeRecognitionRejected, func(_ context.Context, _ eventbus.Envelope, p events.RecognitionRejected) error {
			a.RecognitionPoints.WithLabelValues("refunded").Add(float64(p.Points))
			return nil
		}, name),
	)
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (a *Analytics) count(_ context.Context, env eventbus.Envelope) error {
	a.Events.WithLabelValues(env.Type, env.Source).Inc()
	return nil
}
