package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections    *prometheus.CounterVec
	StoreErrors   prometheus.Counter
	FallbackUsed  prometheus.Counter
	CircuitIsOpen prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_ratelimit_rejections_total",
			Help: "Total number of requests rejected with 429, by limiter scope",
		}, []string{"scope"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "engage_ratelimit_store_errors_total",
			Help: "Total number of primary bucket store errors",
		}),
		FallbackUsed: f.NewCounter(prometheus.CounterOpts{
			Name: "engage_ratelimit_fallback_checks_total",
			Help: "Total number of checks answered by the in-memory fallback store",
		}),
		CircuitIsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "engage_ratelimit_circuit_open",
			Help: "1 while the primary bucket store circuit is open",
		}),
	}
}

func (m *Metrics) IncrementRejections(scope string) {
	if m != nil {
		m.Rejections.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) IncrementStoreErrors() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

func (m *Metrics) IncrementFallbackUsed() {
	if m != nil {
		m.FallbackUsed.Inc()
	}
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitIsOpen.Set(1)
		return
	}
	m.CircuitIsOpen.Set(0)
}
