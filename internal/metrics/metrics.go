// Package metrics provides Prometheus instrumentation for the lifecycle
// operations, blob deletions and sweeps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inspiranet"

// Outcome labels for OperationsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Result labels for MediaDeletionsTotal.
const (
	MediaDeleted  = "deleted"
	MediaMissing  = "missing"
	MediaFailed   = "failed"
	MediaRejected = "rejected"
	MediaSkipped  = "skipped"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OperationsTotal      *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	MessagesDeletedTotal *prometheus.CounterVec
	MediaDeletionsTotal  *prometheus.CounterVec
	GraceRetriesTotal    prometheus.Counter
	SweepDuration        *prometheus.HistogramVec
	SweepDeletedTotal    *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_operations_total",
				Help:      "Lifecycle operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lifecycle_operation_duration_seconds",
				Help:      "Lifecycle operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		MessagesDeletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_deleted_total",
				Help:      "Messages affected by deletion, by delete mode",
			},
			[]string{"mode"},
		),
		MediaDeletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "media_deletions_total",
				Help:      "Blob deletions by result",
			},
			[]string{"result"},
		),
		GraceRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grace_delete_retries_total",
				Help:      "Grace-delete processing passes",
			},
		),
		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Periodic sweep duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"sweep"},
		),
		SweepDeletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_deleted_messages_total",
				Help:      "Messages removed by sweeps, by category",
			},
			[]string{"category"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"name"},
		),
	}
}

func (m *Metrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordMessagesDeleted(mode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.MessagesDeletedTotal.WithLabelValues(mode).Add(float64(count))
}

func (m *Metrics) RecordMediaDeletion(result string) {
	if m == nil {
		return
	}
	m.MediaDeletionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordGraceRetries(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.GraceRetriesTotal.Add(float64(count))
}

func (m *Metrics) RecordSweep(sweep string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

func (m *Metrics) RecordSweepDeleted(category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SweepDeletedTotal.WithLabelValues(category).Add(float64(count))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}
