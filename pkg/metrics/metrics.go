// Package metrics provides Prometheus instrumentation for cellbind passes.
//
// # Overview
//
// The metrics package provides:
//   - Counters for rows read, cells resolved and records emitted
//   - Cast failure counts by destination type
//   - Header resolution failures
//   - Streaming backpressure: producer blocks and queue depth
//
// All metrics are registered on the default registry through promauto and
// are safe for concurrent use.
//
// # Basic Usage
//
//	metrics.RecordsEmitted.WithLabelValues("stream").Inc()
//
//	timer := metrics.NewTimer("read")
//	records, err := reader.ReadAll(ctx, src)
//	metrics.PassDuration.WithLabelValues("sync").Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cellbind"

var (
	// RowsRead tracks rows delivered by row sources.
	// Labels: kind (header/skipped/data)
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total number of rows read from row sources",
		},
		[]string{"kind"},
	)

	// CellsResolved tracks data cells routed by the column resolver.
	// Labels: target (direct/unknown/unmapped)
	CellsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_resolved_total",
			Help:      "Total number of data cells routed by the resolver",
		},
		[]string{"target"},
	)

	// CastFailures tracks non-fatal conversion failures.
	// Labels: type (destination Go type)
	CastFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cast_failures_total",
			Help:      "Total number of cell values that could not be converted",
		},
		[]string{"type"},
	)

	// RecordsEmitted tracks records handed to consumers.
	// Labels: mode (sync/stream)
	RecordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Total number of records assembled and delivered",
		},
		[]string{"mode"},
	)

	// HeaderFailures tracks passes aborted by missing mandatory headers.
	HeaderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "header_failures_total",
			Help:      "Total number of passes aborted by missing mandatory headers",
		},
	)

	// ProducerBlocked tracks how often a streaming producer waited on a
	// full queue.
	ProducerBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "producer_blocked_total",
			Help:      "Total number of times a producer blocked on a full queue",
		},
	)

	// QueueDepth tracks the number of buffered records per stream.
	// Labels: stream
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of records buffered between producer and consumer",
		},
		[]string{"stream"},
	)

	// PassDuration tracks the wall time of complete passes in seconds.
	// Labels: mode (sync/stream)
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of resolution passes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"mode"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// several times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
