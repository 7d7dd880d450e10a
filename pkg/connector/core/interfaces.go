package core

import (
	"context"
	stderrors "errors"
	"io"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// ErrStop is returned by a CellHandler to end a scan early. Sources treat it
// as a normal end of input.
var ErrStop = errors.New(errors.ErrorTypeCanceled, "scan stopped by handler")

// Row is one physical row of a sheet or file.
type Row struct {
	// Index is the zero-based row number
	Index int
	// Cells holds the text of each column; trailing columns may be absent
	Cells []string
}

// Source delivers rows one at a time. Next returns io.EOF after the last
// row.
type Source interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}

// CellHandler receives the cells of a push scan in row order.
type CellHandler interface {
	// StartRow is called before the first cell of row
	StartRow(ctx context.Context, row int) error
	// Cell is called once per cell
	Cell(row, col int, text string) error
	// EndRow is called after the last cell of row
	EndRow(row int) error
	// EndStream is called once when the scan ends, with the error that ended
	// it or nil
	EndStream(err error)
}

// CellSource pushes cells into a handler.
type CellSource interface {
	Scan(ctx context.Context, h CellHandler) error
}

// Destination receives rows of cell text.
type Destination interface {
	WriteRow(cells []string) error
	// Flush pushes buffered rows to the underlying writer
	Flush() error
	Close() error
}

// Schema describes the columns of a record type.
type Schema struct {
	Name   string
	Fields []Field
}

// Field is one column of a schema.
type Field struct {
	// Name is the header text, or the Go field name for indexed columns
	Name string
	// Path is the property path, such as "Home.City" or "Phones[0].Number"
	Path      string
	Column    int
	Type      FieldType
	Nullable  bool
	Mandatory bool
}

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeDecimal   FieldType = "decimal"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeDate      FieldType = "date"
	FieldTypeList      FieldType = "list"
	FieldTypeSet       FieldType = "set"
	FieldTypeText      FieldType = "text"
)

// TypeOf maps a Go destination type onto a FieldType.
func TypeOf(t reflect.Type) (FieldType, bool) {
	nullable := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}

	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(civil.DateTime{}):
		return FieldTypeTimestamp, nullable
	case reflect.TypeOf(civil.Date{}):
		return FieldTypeDate, nullable
	case reflect.TypeOf(decimal.Decimal{}):
		return FieldTypeDecimal, nullable
	}

	switch t.Kind() {
	case reflect.Bool:
		return FieldTypeBool, nullable
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FieldTypeInt, nullable
	case reflect.Float32, reflect.Float64:
		return FieldTypeFloat, nullable
	case reflect.String:
		return FieldTypeString, nullable
	case reflect.Slice:
		return FieldTypeList, true
	case reflect.Map:
		return FieldTypeSet, true
	}
	return FieldTypeText, nullable
}

// Rows is an in-memory Source.
type Rows struct {
	rows [][]string
	next int
}

// FromRecords creates a Source over rows; row indexes follow slice order.
func FromRecords(rows [][]string) *Rows {
	return &Rows{rows: rows}
}

// Next implements Source.
func (r *Rows) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	if r.next >= len(r.rows) {
		return Row{}, io.EOF
	}
	row := Row{Index: r.next, Cells: r.rows[r.next]}
	r.next++
	return row, nil
}

// Close implements Source.
func (r *Rows) Close() error { return nil }

// Push adapts a Source into a CellSource.
func Push(src Source) CellSource {
	return pushSource{src: src}
}

type pushSource struct {
	src Source
}

// Pull returns the Source behind a CellSource made by Push, so callers can
// drive it row by row instead of through Scan.
func Pull(src CellSource) (Source, bool) {
	if p, ok := src.(pushSource); ok {
		return p.src, true
	}
	return nil, false
}

func (p pushSource) Scan(ctx context.Context, h CellHandler) (err error) {
	defer func() {
		if stderrors.Is(err, ErrStop) {
			err = nil
		}
		h.EndStream(err)
	}()

	for {
		row, err := p.src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ScanRow(ctx, h, row); err != nil {
			return err
		}
	}
}

// ScanRow feeds the cells of one row to h.
func ScanRow(ctx context.Context, h CellHandler, row Row) error {
	if err := h.StartRow(ctx, row.Index); err != nil {
		return err
	}
	for col, text := range row.Cells {
		if err := h.Cell(row.Index, col, text); err != nil {
			return err
		}
	}
	return h.EndRow(row.Index)
}
