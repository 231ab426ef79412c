package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northrook/profiler/internal/warn"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	eventStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "starts_total",
			Help:      "Number of records opened per event.",
		}, []string{"name", "category"},
	)
	eventStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "stops_total",
			Help:      "Number of stop operations addressed to an event.",
		}, []string{"name", "category"},
	)
	eventSnapshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "snapshots_total",
			Help:      "Number of snapshots taken per event.",
		}, []string{"name", "category"},
	)
	eventDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "duration_seconds",
			Help:      "Accumulated duration of closed records per event.",
		}, []string{"name", "category"},
	)
	eventPeakMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "peak_memory_bytes",
			Help:      "Highest stop-time memory sample per event.",
		}, []string{"name", "category"},
	)
	eventRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "profiler",
			Subsystem: "event",
			Name:      "running",
			Help:      "Whether the event's most recent record is open (1 or 0).",
		}, []string{"name", "category"},
	)
	warnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profiler",
			Name:      "warnings_total",
			Help:      "Recoverable misuse warnings emitted by the profiler.",
		}, []string{"reason"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{eventStarts, eventStops, eventSnapshots, eventDuration, eventPeakMemory, eventRunning, warnings}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by the facade to record metrics.
// They no-op if Register hasn't been called.

func IncStart(name, category string) {
	if regOK.Load() {
		eventStarts.WithLabelValues(name, category).Inc()
	}
}

func IncStop(name, category string) {
	if regOK.Load() {
		eventStops.WithLabelValues(name, category).Inc()
	}
}

func IncSnapshot(name, category string) {
	if regOK.Load() {
		eventSnapshots.WithLabelValues(name, category).Inc()
	}
}

func IncWarning(reason string) {
	if regOK.Load() {
		warnings.WithLabelValues(reason).Inc()
	}
}

func SetDuration(name, category string, seconds float64) {
	if regOK.Load() {
		eventDuration.WithLabelValues(name, category).Set(seconds)
	}
}

func SetPeakMemory(name, category string, bytes float64) {
	if regOK.Load() {
		eventPeakMemory.WithLabelValues(name, category).Set(bytes)
	}
}

func SetRunning(name, category string, running bool) {
	if regOK.Load() {
		var value float64
		if running {
			value = 1
		}
		eventRunning.WithLabelValues(name, category).Set(value)
	}
}

// WarnCounter forwards warnings to Next and counts them by message.
// Warning messages are fixed strings with variable parts in the args,
// so the reason label stays bounded.
type WarnCounter struct {
	Next warn.Sink
}

func (w WarnCounter) Warn(msg string, args ...any) {
	IncWarning(msg)
	if w.Next != nil {
		w.Next.Warn(msg, args...)
	}
}
