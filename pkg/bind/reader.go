// Package bind reads typed records from tabular sources.
//
//	r, err := bind.NewReader[Order](config.NewOptions())
//	orders, err := r.ReadAll(ctx, src)
//
// A Reader runs one pass per call. Synchronous calls (ReadAll, ForEach)
// run the pass on the caller's goroutine; Stream and All run it on a
// producer goroutine feeding a bounded queue.
package bind

import (
	"context"
	"iter"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/internal/pipeline"
	"github.com/ajitpratap0/cellbind/pkg/assembler"
	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/caster"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/observability"
	"github.com/ajitpratap0/cellbind/pkg/resolver"
	"github.com/ajitpratap0/cellbind/pkg/stream"
)

// Option configures a Reader.
type Option func(*settings)

type settings struct {
	registry *binding.Registry
	probes   *assembler.ProbeRegistry
	logger   *zap.Logger
	now      func() time.Time
	sheet    string
	convert  caster.Conversion
}

// WithRegistry shares a binding registry between readers. Declarations and
// constructors registered on it are used for T.
func WithRegistry(r *binding.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithProbes sets the probe values used to map constructor parameters.
func WithProbes(p *assembler.ProbeRegistry) Option {
	return func(s *settings) { s.probes = p }
}

// WithLogger sets the logger of the reader.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock overrides the clock that supplies defaults for empty date cells.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithConversion installs a conversion the caster of every pass consults
// before its built-in rules.
func WithConversion(fn caster.Conversion) Option {
	return func(s *settings) { s.convert = fn }
}

// WithSheet names the sheet reported in cast error locations.
func WithSheet(name string) Option {
	return func(s *settings) { s.sheet = name }
}

// Reader binds rows to records of type T, which is a struct or a pointer
// to one.
type Reader[T any] struct {
	opts      *config.Options
	decl      *binding.Declaration
	assembler *assembler.Assembler
	logger    *zap.Logger
	tracer    *observability.PassTracer
	settings  settings
	pointer   bool

	mu      sync.Mutex
	caster  *caster.Caster
	columns resolver.ColumnMap
	stats   pipeline.Stats
}

// NewReader validates opts and resolves the declaration of T.
func NewReader[T any](opts *config.Options, options ...Option) (*Reader[T], error) {
	if opts == nil {
		opts = config.NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := settings{now: time.Now}
	for _, o := range options {
		o(&s)
	}
	if s.registry == nil {
		s.registry = binding.NewRegistry()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	pointer := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		pointer = true
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf(errors.ErrorTypeConfig, "cannot bind rows to %s, a struct type is required", t)
	}

	decl, err := s.registry.Declaration(t)
	if err != nil {
		return nil, err
	}

	opts = opts.Clone()
	logger := s.logger.With(zap.String("target", t.String()))
	return &Reader[T]{
		opts:      opts,
		decl:      decl,
		assembler: assembler.New(s.probes, opts, logger),
		logger:    logger,
		tracer:    observability.NewPassTracer(t.String()),
		settings:  s,
		pointer:   pointer,
	}, nil
}

// Declaration returns the binding declaration of T.
func (r *Reader[T]) Declaration() *binding.Declaration { return r.decl }

// ReadAll reads every record of src.
func (r *Reader[T]) ReadAll(ctx context.Context, src core.CellSource) ([]T, error) {
	var out []T
	err := r.ForEach(ctx, src, func(v T) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ForEach calls fn with each record in row order. An error from fn ends
// the pass and is returned.
func (r *Reader[T]) ForEach(ctx context.Context, src core.CellSource, fn func(T) error) error {
	return r.run(ctx, src, "sync", fn)
}

// Stream reads src on a producer goroutine. The iterator must be closed
// when the consumer stops early.
func (r *Reader[T]) Stream(ctx context.Context, src core.CellSource) *stream.Iterator[T] {
	return stream.Go(ctx, r.decl.Type.String(), r.opts.QueueCapacity,
		func(ctx context.Context, emit func(T) error) error {
			return r.run(ctx, src, "stream", emit)
		})
}

// All yields the records of src followed, on failure, by one final error.
// Breaking out of the loop stops the producer.
func (r *Reader[T]) All(ctx context.Context, src core.CellSource) iter.Seq2[T, error] {
	return r.Stream(ctx, src).All()
}

// Columns returns the column map resolved by the most recent pass.
func (r *Reader[T]) Columns() resolver.ColumnMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.columns
}

// Stats returns the counters of the most recent pass.
func (r *Reader[T]) Stats() pipeline.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// LastError returns the most recent cast failure of the most recent pass.
func (r *Reader[T]) LastError() *caster.CastError {
	c := r.currentCaster()
	if c == nil {
		return nil
	}
	return c.LastError()
}

// Errors returns every cast failure of the most recent pass. It fails with
// caster.ErrCollectDisabled unless CollectErrors is set.
func (r *Reader[T]) Errors() ([]*caster.CastError, error) {
	c := r.currentCaster()
	if c == nil {
		if !r.opts.CollectErrors {
			return nil, caster.ErrCollectDisabled
		}
		return nil, nil
	}
	return c.Errors()
}

func (r *Reader[T]) currentCaster() *caster.Caster {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caster
}

func (r *Reader[T]) run(ctx context.Context, src core.CellSource, mode string, fn func(T) error) error {
	options := []caster.Option{
		caster.WithClock(r.settings.now),
		caster.WithLogger(r.logger),
	}
	if r.settings.convert != nil {
		options = append(options, caster.WithConversion(r.settings.convert))
	}
	c, err := caster.New(r.opts, options...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.caster = c
	r.mu.Unlock()

	return r.tracer.Trace(ctx, "read", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("cellbind.mode", mode)

		p := pipeline.New(pipeline.Config{
			Declaration: r.decl,
			Options:     r.opts,
			Caster:      c,
			Assembler:   r.assembler,
			Sheet:       r.settings.sheet,
			Mode:        mode,
		}, r.logger, func(rec reflect.Value) error {
			return fn(r.convert(rec))
		})

		var err error
		if rows, ok := core.Pull(src); ok {
			err = p.RunPull(ctx, rows)
		} else {
			err = p.RunPush(ctx, src)
		}

		stats := p.Stats()
		r.mu.Lock()
		r.columns = p.Columns()
		r.stats = stats
		r.mu.Unlock()

		span.SetAttribute("cellbind.rows", stats.RowsRead)
		span.SetAttribute("cellbind.records", stats.RecordsEmitted)
		return err
	})
}

func (r *Reader[T]) convert(rec reflect.Value) T {
	if r.pointer {
		p := reflect.New(r.decl.Type)
		p.Elem().Set(rec)
		return p.Interface().(T)
	}
	return rec.Interface().(T)
}
