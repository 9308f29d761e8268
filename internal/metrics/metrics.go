// Package metrics exposes Prometheus collectors for the reconciliation loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "keventdir"
	subsystem = "watcher"
)

// Metrics groups the collectors of one watcher. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	events          *prometheus.CounterVec
	droppedRecords  prometheus.Counter
	recordErrors    prometheus.Counter
	sideEffectError *prometheus.CounterVec
	rescans         prometheus.Counter
	handles         prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Total number of reconciled events by kind",
		}, []string{"kind"}),
		droppedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_records_total",
			Help:      "Total number of kernel records whose descriptor was no longer registered",
		}),
		recordErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "record_errors_total",
			Help:      "Total number of kernel records flagged with EV_ERROR",
		}),
		sideEffectError: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "side_effect_errors_total",
			Help:      "Total number of failed registry updates while reconciling an event",
		}, []string{"kind"}),
		rescans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rescans_total",
			Help:      "Total number of full rescans of the scan roots",
		}),
		handles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handles",
			Help:      "Number of open descriptors with registered interest",
		}),
	}
}

// Event counts one reconciled event of the given kind.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// DroppedRecord counts a record for an unknown descriptor.
func (m *Metrics) DroppedRecord() {
	if m == nil {
		return
	}
	m.droppedRecords.Inc()
}

// RecordError counts a record flagged with an error.
func (m *Metrics) RecordError() {
	if m == nil {
		return
	}
	m.recordErrors.Inc()
}

// SideEffectError counts a failed registry update for an event kind.
func (m *Metrics) SideEffectError(kind string) {
	if m == nil {
		return
	}
	m.sideEffectError.WithLabelValues(kind).Inc()
}

// Rescan counts one full rescan.
func (m *Metrics) Rescan() {
	if m == nil {
		return
	}
	m.rescans.Inc()
}

// SetHandles records the current registry size.
func (m *Metrics) SetHandles(n int) {
	if m == nil {
		return
	}
	m.handles.Set(float64(n))
}
