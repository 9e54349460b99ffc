package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for routes served by the gateway.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheResults    *prometheus.CounterVec
	Timeouts        *prometheus.CounterVec
	Panics          *prometheus.CounterVec
}

// New creates and registers the gateway metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_gateway_requests_total",
			Help: "Total number of requests by route and status code",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engage_gateway_request_duration_seconds",
			Help:    "Time from first pipeline stage to response, by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		CacheResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_gateway_cache_results_total",
			Help: "Response cache lookups by route and result (hit, miss, shared)",
		}, []string{"route", "result"}),
		Timeouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_gateway_timeouts_total",
			Help: "Requests answered with 408 because the handler overran its deadline",
		}, []string{"route"}),
		Panics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engage_gateway_panics_total",
			Help: "Panics recovered by the error boundary, by route",
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementCache(route, result string) {
	if m != nil {
		m.CacheResults.WithLabelValues(route, result).Inc()
	}
}

func (m *Metrics) IncrementTimeouts(route string) {
	if m != nil {
		m.Timeouts.WithLabelValues(route).Inc()
	}
}

func (m *Metrics) IncrementPanics(route string) {
	if m != nil {
		m.Panics.WithLabelValues(route).Inc()
	}
}
