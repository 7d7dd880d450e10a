// Package observability provides tracing and operation logging for cellbind
package observability

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// InstrumentationName names the tracer used by every span of the engine.
const InstrumentationName = "github.com/ajitpratap0/cellbind"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	ExporterType   string // "stdout", "none"
	// Writer receives stdout exports; nil means os.Stdout
	Writer       io.Writer
	BatchTimeout time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  zapcore.Level
	Format string // "json", "console"
}

// ObservabilityConfig contains all observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig
	Logging LoggingConfig
}

// Initialize installs the tracer provider described by config. The returned
// function flushes and stops it.
func Initialize(config ObservabilityConfig) (func(context.Context) error, error) {
	return initTracing(config.Tracing)
}

// Tracer returns the engine tracer. Before Initialize it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Span wraps a trace span and buffers its attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operationName)
	return ctx, &Span{span: span, startTime: time.Now()}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End sets the status from err and ends the span.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.attributes = append(s.attributes, attribute.Float64("duration_seconds", time.Since(s.startTime).Seconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// PassTracer starts spans for the passes over one record type.
type PassTracer struct {
	target string
}

// NewPassTracer creates a tracer labeled with target.
func NewPassTracer(target string) *PassTracer {
	return &PassTracer{target: target}
}

// StartSpan starts a span named "cellbind.<operation>".
func (pt *PassTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, "cellbind."+operation)
	span.SetAttribute("cellbind.target", pt.target)
	span.SetAttribute("cellbind.operation", operation)
	return ctx, span
}

// Trace runs fn inside a span and ends it with fn's error.
func (pt *PassTracer) Trace(ctx context.Context, operation string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := pt.StartSpan(ctx, operation)
	err := fn(ctx, span)
	span.End(err)
	return err
}
