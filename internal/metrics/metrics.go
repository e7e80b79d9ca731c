// Package metrics exposes prometheus collectors for backtest runs and sweeps.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "argo"

const subsystem = "backtest"

type Metrics struct {
	runsTotal      *prometheus.CounterVec
	barsProcessed  prometheus.Counter
	ordersTotal    *prometheus.CounterVec
	runDuration    prometheus.Histogram
	sweepJobsTotal *prometheus.CounterVec
}

// New registers the collectors on registerer. Passing nil uses the default registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registerer)

	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total backtest runs by final status",
			},
			[]string{"status"},
		),
		barsProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bars_processed_total",
				Help:      "Total bars replayed",
			},
		),
		ordersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_total",
				Help:      "Total simulated orders by side and status",
			},
			[]string{"side", "status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall clock duration of backtest runs",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		sweepJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_jobs_total",
				Help:      "Total parameter sweep jobs by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) RunFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) BarProcessed() {
	if m == nil {
		return
	}

	m.barsProcessed.Inc()
}

func (m *Metrics) Order(side string, status string) {
	if m == nil {
		return
	}

	m.ordersTotal.WithLabelValues(side, status).Inc()
}

func (m *Metrics) SweepJob(status string) {
	if m == nil {
		return
	}

	m.sweepJobsTotal.WithLabelValues(status).Inc()
}
