// Package writer lays records out as rows, the inverse of package bind.
package writer

import (
	"fmt"
	"io"
	"reflect"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/caster"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvdest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/csv"
	xlsxdest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/xlsx"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Option configures a Writer.
type Option func(*settings)

type settings struct {
	registry *binding.Registry
	logger   *zap.Logger
}

// WithRegistry shares a binding registry with readers of the same types.
func WithRegistry(r *binding.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithLogger sets the logger of the writer.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Writer writes records of type T, a struct or a pointer to one, to a
// destination. A header row is written first unless HeaderCount is 0.
type Writer[T any] struct {
	dest    core.Destination
	opts    *config.Options
	decl    *binding.Declaration
	caster  *caster.Caster
	logger  *zap.Logger
	pointer bool
}

// New creates a writer over dest.
func New[T any](dest core.Destination, opts *config.Options, options ...Option) (*Writer[T], error) {
	if opts == nil {
		opts = config.NewOptions()
	}
	s := settings{}
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
	pointer := t.Kind() == reflect.Pointer
	if pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf(errors.ErrorTypeConfig, "cannot write rows from %s, a struct type is required", t)
	}
	decl, err := s.registry.Declaration(t)
	if err != nil {
		return nil, err
	}
	c, err := caster.New(opts)
	if err != nil {
		return nil, err
	}

	return &Writer[T]{
		dest:    dest,
		opts:    opts,
		decl:    decl,
		caster:  c,
		logger:  s.logger.With(zap.String("target", t.String())),
		pointer: pointer,
	}, nil
}

// NewCSV creates a writer producing delimited text on w.
func NewCSV[T any](w io.Writer, opts *config.Options, options ...Option) (*Writer[T], error) {
	if opts == nil {
		opts = config.NewOptions()
	}
	dest, err := csvdest.NewCSVDestination(w, opts)
	if err != nil {
		return nil, err
	}
	return New[T](dest, opts, options...)
}

// NewXLSX creates a writer producing a workbook that is written to w on
// Close.
func NewXLSX[T any](w io.Writer, opts *config.Options, options ...Option) (*Writer[T], error) {
	if opts == nil {
		opts = config.NewOptions()
	}
	dest, err := xlsxdest.NewXLSXDestination(w, opts)
	if err != nil {
		return nil, err
	}
	return New[T](dest, opts, options...)
}

// Columns returns the layout used to write records.
func (w *Writer[T]) Columns(records []T) []Column {
	return Layout(w.decl, w.roots(records))
}

// Schema describes the columns written for records.
func (w *Writer[T]) Schema(records []T) core.Schema {
	cols := w.Columns(records)
	s := core.Schema{Name: w.decl.Type.Name(), Fields: make([]core.Field, 0, len(cols))}
	for _, c := range cols {
		f := core.Field{Name: c.Header, Path: c.Path, Column: c.Index, Type: core.FieldTypeString, Nullable: true}
		if c.Binding != nil {
			f.Type, f.Nullable = core.TypeOf(c.Binding.Type)
			f.Mandatory = c.Binding.Mandatory
		}
		s.Fields = append(s.Fields, f)
	}
	return s
}

// Write writes the header row and one row per record, then flushes.
func (w *Writer[T]) Write(records []T) error {
	roots := w.roots(records)
	cols := Layout(w.decl, roots)
	width := 0
	if len(cols) > 0 {
		width = cols[len(cols)-1].Index + 1
	}

	if w.opts.HeaderCount > 0 {
		header := make([]string, width)
		for _, c := range cols {
			header[c.Index] = c.Header
		}
		if err := w.dest.WriteRow(header); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSource, "failed to write header row")
		}
	}

	for i, root := range roots {
		row := make([]string, width)
		if root.IsValid() {
			for _, c := range cols {
				text, err := w.caster.Format(c.Value(root))
				if err != nil {
					return errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("record %d, column %s", i, c.Path))
				}
				row[c.Index] = text
			}
		}
		if err := w.dest.WriteRow(row); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("failed to write record %d", i))
		}
	}

	if err := w.dest.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to flush rows")
	}
	w.logger.Debug("records written", zap.Int("records", len(records)), zap.Int("columns", len(cols)))
	return nil
}

// Close closes the destination.
func (w *Writer[T]) Close() error {
	return w.dest.Close()
}

// roots copies records into addressable values; nil pointers stay invalid
// and are written as empty rows.
func (w *Writer[T]) roots(records []T) []reflect.Value {
	out := make([]reflect.Value, len(records))
	for i, rec := range records {
		v := reflect.ValueOf(&rec).Elem()
		if w.pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		root := reflect.New(w.decl.Type).Elem()
		root.Set(v)
		out[i] = root
	}
	return out
}
