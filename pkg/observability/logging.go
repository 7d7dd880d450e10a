package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OperationLogger logs the phases of one long-running operation, carrying
// the trace identifiers of its context.
type OperationLogger struct {
	logger    *zap.Logger
	operation string
	startTime time.Time
}

// NewOperationLogger creates an operation logger. A nil logger is a no-op.
func NewOperationLogger(ctx context.Context, logger *zap.Logger, operation string) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := []zap.Field{zap.String("operation", operation)}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return &OperationLogger{
		logger:    logger.With(fields...),
		operation: operation,
		startTime: time.Now(),
	}
}

// Logger returns the underlying logger with the operation fields attached.
func (ol *OperationLogger) Logger() *zap.Logger { return ol.logger }

// LogStart logs the start of an operation
func (ol *OperationLogger) LogStart(msg string, fields ...zap.Field) {
	ol.logger.Info(msg, append(fields, zap.String("phase", "start"))...)
}

// LogComplete logs the completion of an operation
func (ol *OperationLogger) LogComplete(msg string, fields ...zap.Field) {
	ol.logger.Info(msg, append(fields,
		zap.String("phase", "complete"),
		zap.Duration("total_duration", time.Since(ol.startTime)),
	)...)
}

// LogError logs an operation error
func (ol *OperationLogger) LogError(msg string, err error, fields ...zap.Field) {
	ol.logger.Error(msg, append(fields,
		zap.String("phase", "error"),
		zap.Duration("duration_before_error", time.Since(ol.startTime)),
		zap.Error(err),
	)...)
}

// RecordProgress counts records and logs progress at a fixed interval.
type RecordProgress struct {
	logger       *OperationLogger
	recordsTotal int64
	errorsTotal  int64
	startTime    time.Time
	lastLogTime  time.Time
	logInterval  time.Duration
}

// NewRecordProgress creates a progress counter that logs every 30 seconds.
func NewRecordProgress(logger *OperationLogger) *RecordProgress {
	now := time.Now()
	return &RecordProgress{
		logger:      logger,
		startTime:   now,
		lastLogTime: now,
		logInterval: 30 * time.Second,
	}
}

// SetLogInterval sets the interval for progress logging
func (rp *RecordProgress) SetLogInterval(interval time.Duration) {
	rp.logInterval = interval
}

// RecordProcessed counts records and logs progress when the interval passed.
func (rp *RecordProgress) RecordProcessed(count int) {
	rp.recordsTotal += int64(count)
	if time.Since(rp.lastLogTime) >= rp.logInterval {
		rp.LogProgress()
		rp.lastLogTime = time.Now()
	}
}

// RecordError counts a record-level error.
func (rp *RecordProgress) RecordError() {
	rp.errorsTotal++
}

// Records returns the number of records counted so far.
func (rp *RecordProgress) Records() int64 { return rp.recordsTotal }

// LogProgress logs current progress
func (rp *RecordProgress) LogProgress() {
	elapsed := time.Since(rp.startTime)
	rp.logger.logger.Info("processing progress",
		zap.String("phase", "progress"),
		zap.Int64("records_processed", rp.recordsTotal),
		zap.Int64("errors", rp.errorsTotal),
		zap.Float64("records_per_second", float64(rp.recordsTotal)/elapsed.Seconds()),
		zap.Duration("elapsed", elapsed),
	)
}

// LogFinal logs final statistics
func (rp *RecordProgress) LogFinal() {
	elapsed := time.Since(rp.startTime)
	errorRate := 0.0
	if rp.recordsTotal > 0 {
		errorRate = float64(rp.errorsTotal) / float64(rp.recordsTotal) * 100
	}
	rp.logger.LogComplete("processing completed",
		zap.Int64("total_records", rp.recordsTotal),
		zap.Int64("total_errors", rp.errorsTotal),
		zap.Float64("avg_records_per_second", float64(rp.recordsTotal)/elapsed.Seconds()),
		zap.Float64("error_rate_percent", errorRate),
	)
}
