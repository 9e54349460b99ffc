package featureflag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Evaluations       prometheus.Counter
	EvaluatorFailures prometheus.Counter
	FailOpenGates     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "engage_featureflag_evaluations_total",
			Help: "Total number of flag evaluations sent to the evaluator (memo misses)",
		}),
		EvaluatorFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "engage_featureflag_evaluator_failures_total",
			Help: "Total number of flag evaluations that failed at the evaluator",
		}),
		FailOpenGates: f.NewCounter(prometheus.CounterOpts{
			Name: "engage_featureflag_fail_open_total",
			Help: "Total number of gated requests let through because the evaluator failed",
		}),
	}
}

func (m *Metrics) incEvaluations(n int) {
	if m != nil {
		m.Evaluations.Add(float64(n))
	}
}

func (m *Metrics) incFailures() {
	if m != nil {
		m.EvaluatorFailures.Inc()
	}
}

func (m *Metrics) incFailOpen() {
	if m != nil {
		m.FailOpenGates.Inc()
	}
}
