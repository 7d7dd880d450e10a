package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/cellbind/pkg/csvline"
	"github.com/ajitpratap0/cellbind/pkg/metrics"
)

// PassMetrics collects the counters of one pass and mirrors row counts to
// Prometheus.
type PassMetrics struct {
	mode string

	rowsRead    int64
	headerRows  int64
	skippedRows int64
	blankRows   int64
	records     int64

	startTime time.Time
	endTime   atomic.Int64 // unix nanoseconds, zero while running
}

// NewPassMetrics creates a collector; mode labels emitted records.
func NewPassMetrics(mode string) *PassMetrics {
	return &PassMetrics{mode: mode, startTime: time.Now()}
}

// RecordRow counts one row of kind.
func (pm *PassMetrics) RecordRow(kind csvline.RowKind) {
	atomic.AddInt64(&pm.rowsRead, 1)
	switch kind {
	case csvline.RowHeader:
		atomic.AddInt64(&pm.headerRows, 1)
	case csvline.RowSkipped:
		atomic.AddInt64(&pm.skippedRows, 1)
	}
	metrics.RowsRead.WithLabelValues(kind.String()).Inc()
}

// RecordBlank counts a data row without any text.
func (pm *PassMetrics) RecordBlank() {
	atomic.AddInt64(&pm.blankRows, 1)
}

// RecordEmitted counts one delivered record.
func (pm *PassMetrics) RecordEmitted() {
	atomic.AddInt64(&pm.records, 1)
	metrics.RecordsEmitted.WithLabelValues(pm.mode).Inc()
}

// Stop freezes the duration and observes it.
func (pm *PassMetrics) Stop() {
	now := time.Now()
	if pm.endTime.CompareAndSwap(0, now.UnixNano()) {
		metrics.PassDuration.WithLabelValues(pm.mode).Observe(now.Sub(pm.startTime).Seconds())
	}
}

// Snapshot returns the current counters.
func (pm *PassMetrics) Snapshot() Stats {
	end := time.Now()
	if ns := pm.endTime.Load(); ns != 0 {
		end = time.Unix(0, ns)
	}
	s := Stats{
		RowsRead:       atomic.LoadInt64(&pm.rowsRead),
		HeaderRows:     atomic.LoadInt64(&pm.headerRows),
		SkippedRows:    atomic.LoadInt64(&pm.skippedRows),
		BlankRows:      atomic.LoadInt64(&pm.blankRows),
		RecordsEmitted: atomic.LoadInt64(&pm.records),
		StartTime:      pm.startTime,
		Duration:       end.Sub(pm.startTime),
	}
	if secs := s.Duration.Seconds(); secs > 0 {
		s.ThroughputRPS = float64(s.RecordsEmitted) / secs
	}
	return s
}
