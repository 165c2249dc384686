// Package metrics exposes tick outcomes as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/redrive/pkg/model"
)

// TickObserver receives the outcome of each scheduler tick. The scheduler
// only depends on this interface so tests can run without a registry.
type TickObserver interface {
	ObserveTick(res model.TickResult, elapsed time.Duration)
	ObserveSkippedTick(trigger string)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) ObserveTick(model.TickResult, time.Duration) {}
func (NopObserver) ObserveSkippedTick(string)                   {}

// Metrics implements TickObserver backed by a Prometheus registry.
type Metrics struct {
	registry     *prometheus.Registry
	ticks        *prometheus.CounterVec
	skippedTicks *prometheus.CounterVec
	records      *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redrive_ticks_total",
			Help: "Completed scheduler ticks per trigger.",
		}, []string{"trigger"}),
		skippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redrive_ticks_skipped_total",
			Help: "Ticks skipped because the previous tick for the trigger was still in flight.",
		}, []string{"trigger"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redrive_records_total",
			Help: "Per-record outcomes per trigger.",
		}, []string{"trigger", "outcome"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redrive_tick_duration_seconds",
			Help:    "Wall-clock duration of scheduler ticks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
	}

	m.registry.MustRegister(m.ticks, m.skippedTicks, m.records, m.tickDuration)
	return m
}

// ObserveTick records the counts of one completed tick.
func (m *Metrics) ObserveTick(res model.TickResult, elapsed time.Duration) {
	m.ticks.WithLabelValues(res.Trigger).Inc()
	m.tickDuration.WithLabelValues(res.Trigger).Observe(elapsed.Seconds())

	outcomes := map[string]int{
		"succeeded":     res.Succeeded,
		"failed":        res.Failed,
		"skipped":       res.Skipped,
		"reclaimed":     res.Reclaimed,
		"persist_error": res.PersistErrors,
	}
	for outcome, n := range outcomes {
		if n > 0 {
			m.records.WithLabelValues(res.Trigger, outcome).Add(float64(n))
		}
	}
}

// ObserveSkippedTick records a single-flight skip.
func (m *Metrics) ObserveSkippedTick(trigger string) {
	m.skippedTicks.WithLabelValues(trigger).Inc()
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
