// Package metrics provides Prometheus metrics for the monitor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fibwatch"

// Metrics holds all collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Provider metrics
	FetchErrors   *prometheus.CounterVec
	FetchDuration prometheus.Histogram

	// Alert metrics
	AlertsEmitted prometheus.Counter
	NotifyErrors  prometheus.Counter

	// Watch-list gauges
	WatchedTokens prometheus.Gauge
	StoppedTokens prometheus.Gauge

	// Persistence
	PersistErrors *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Evaluation cycles run, by outcome",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one evaluation cycle",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_errors_total",
			Help:      "Pair fetches that failed, by reason",
		}, []string{"reason"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "DexScreener request latency including retries",
			Buckets:   prometheus.DefBuckets,
		}),

		AlertsEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "emitted_total",
			Help:      "Entering-band alerts produced by the engine",
		}),
		NotifyErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notify_errors_total",
			Help:      "Alerts that could not be delivered to the chat",
		}),

		WatchedTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "tokens",
			Help:      "Tokens currently on the watch-list",
		}),
		StoppedTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "stopped_tokens",
			Help:      "Watch-list tokens that exhausted their alert budget",
		}),

		PersistErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "State file failures, by operation",
		}, []string{"op"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(took.Seconds())
}

// RecordFetch records one provider call.
func (m *Metrics) RecordFetch(took time.Duration, reason string) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(took.Seconds())
	if reason != "" {
		m.FetchErrors.WithLabelValues(reason).Inc()
	}
}

// RecordAlert increments the emitted alerts counter.
func (m *Metrics) RecordAlert() {
	if m == nil {
		return
	}
	m.AlertsEmitted.Inc()
}

// RecordNotifyError increments the delivery failure counter.
func (m *Metrics) RecordNotifyError() {
	if m == nil {
		return
	}
	m.NotifyErrors.Inc()
}

// RecordPersistError counts a failed load or save.
func (m *Metrics) RecordPersistError(op string) {
	if m == nil {
		return
	}
	m.PersistErrors.WithLabelValues(op).Inc()
}

// SetWatchList updates the watch-list gauges.
func (m *Metrics) SetWatchList(watched, stopped int) {
	if m == nil {
		return
	}
	m.WatchedTokens.Set(float64(watched))
	m.StoppedTokens.Set(float64(stopped))
}
