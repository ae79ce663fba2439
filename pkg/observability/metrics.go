package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the engine.
type Metrics struct {
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	Cycles       prometheus.Counter
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// It panics if they are already registered, like prometheus.MustRegister.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_runs_total",
				Help: "Total number of simulation runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cohort_run_duration_seconds",
				Help:    "Duration of simulation runs",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cohort_cycles_total",
				Help: "Total number of simulated cycles",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	reg.MustRegister(m.Runs, m.RunDuration, m.Cycles, m.HTTPRequests)
	return m
}

// Hooks returns lifecycle hooks feeding the run and cycle collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			status := "ok"
			if e.Err != nil {
				status = "error"
			}
			m.Runs.WithLabelValues(status).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
		},
		OnCycleEnd: func(context.Context, *domain.CycleEvent) {
			m.Cycles.Inc()
		},
	}
}

// ObserveHTTP counts one request.
func (m *Metrics) ObserveHTTP(route string, code int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
