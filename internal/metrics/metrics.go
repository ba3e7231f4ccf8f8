// Package metrics exposes Prometheus metrics for journal writes and balance
// reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	// A private registry lets tests create Metrics more than once.
	Registry *prometheus.Registry

	entries       *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	recomputes    prometheus.Counter
	drift         prometheus.Counter
	writeDuration *prometheus.HistogramVec
}

// New creates a registry and registers all metrics in it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		entries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeping_entries_total",
				Help: "Journal entry writes by action.",
			},
			[]string{"action"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeping_entry_rejections_total",
				Help: "Journal entries rejected before any write, by reason.",
			},
			[]string{"reason"},
		),
		recomputes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bookkeeping_balance_recomputes_total",
				Help: "Account balances recomputed from journal lines.",
			},
		),
		drift: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bookkeeping_balance_drift_total",
				Help: "Cached balances found out of sync during reconciliation.",
			},
		),
		writeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookkeeping_write_duration_seconds",
				Help:    "Duration of journal writes including balance recompute.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
}

// IncrEntry counts a committed journal write.
func (m *Metrics) IncrEntry(action string) {
	m.entries.WithLabelValues(action).Inc()
}

// IncrRejection counts an entry rejected by validation.
func (m *Metrics) IncrRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// AddRecomputes counts recomputed balance rows.
func (m *Metrics) AddRecomputes(n int) {
	m.recomputes.Add(float64(n))
}

// AddDrift counts balances corrected by reconciliation.
func (m *Metrics) AddDrift(n int) {
	m.drift.Add(float64(n))
}

// ObserveWrite records how long a journal write took.
func (m *Metrics) ObserveWrite(action string, d time.Duration) {
	m.writeDuration.WithLabelValues(action).Observe(d.Seconds())
}

// EntryCounter returns the write counter for action.
func (m *Metrics) EntryCounter(action string) prometheus.Counter {
	return m.entries.WithLabelValues(action)
}

// RejectionCounter returns the rejection counter for reason.
func (m *Metrics) RejectionCounter(reason string) prometheus.Counter {
	return m.rejections.WithLabelValues(reason)
}

// DriftCounter returns the reconciliation drift counter.
func (m *Metrics) DriftCounter() prometheus.Counter {
	return m.drift
}

// RecomputeCounter returns the balance recompute counter.
func (m *Metrics) RecomputeCounter() prometheus.Counter {
	return m.recomputes
}
