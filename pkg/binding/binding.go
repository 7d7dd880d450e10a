// Package binding describes how a record type maps onto columns.
//
// A Declaration lists one Binding per bound property. Declarations are
// derived from `cell` struct tags or supplied as explicit tables, and are
// cached per type in a Registry. A cached declaration is never modified, so
// any number of passes may share it.
//
// Tag grammar:
//
//	cell:"-"                              ignored
//	cell:"#3"                             column 3
//	cell:"Name"                           column headed Name
//	cell:"First Name|Given Name"          any of the alternates
//	cell:"A/B,delim=/"                    alternates split on a custom delimiter
//	cell:"Name,mandatory,order=2"         mandatory, written at position 2
//	cell:",row"                           receives the row number
//	cell:",unknown"                       map[string]string of unbound columns
//	cell:",errors"                        map[string]error of cast failures
//	cell:",range,start=2,end=4"           nested struct over columns 2..4
//	cell:",list,start=1,end=6,stride=3"   slice of structs, 3 columns each
//
// readonly excludes a property from writing, writeonly from reading.
package binding

import (
	"fmt"
	"reflect"
)

// Kind is the way a property receives its value.
type Kind int

const (
	// KindIndex binds an explicit column index
	KindIndex Kind = iota
	// KindName binds a column by header text
	KindName
	// KindRange binds a nested struct over a column window
	KindRange
	// KindList binds a slice of structs repeating over a column window
	KindList
	// KindRow receives the row number
	KindRow
	// KindUnknown collects header/value pairs of unbound columns
	KindUnknown
	// KindErrors collects per-row cast failures keyed by property label
	KindErrors
)

var kindNames = [...]string{"index", "name", "range", "list", "row", "unknown", "errors"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Unbounded marks a window without an upper column.
const Unbounded = -1

// Binding maps one property to its source.
type Binding struct {
	// Field is the Go field name
	Field string
	// Index is the reflect field index path, including flattened embeddings
	Index []int
	// Type is the field type
	Type reflect.Type
	Kind Kind

	// Column is the explicit column of a KindIndex binding
	Column int
	// Names are the accepted header texts of a KindName binding
	Names []string
	// Order is the write position hint, -1 when absent
	Order     int
	Mandatory bool

	// Start and End bound a range or list window, End inclusive or Unbounded
	Start int
	End   int
	// Stride is the column width of one list element
	Stride int
	// Elem declares the nested struct of a range or list binding
	Elem *Declaration

	ReadOnly  bool
	WriteOnly bool
}

// Label is the first declared name, or empty for bindings without one.
func (b *Binding) Label() string {
	if len(b.Names) > 0 {
		return b.Names[0]
	}
	return ""
}

// Contains reports whether col falls inside the window of a range or list.
func (b *Binding) Contains(col int) bool {
	return col >= b.Start && (b.End == Unbounded || col <= b.End)
}

// IsCell reports whether the binding takes its value from a single cell.
func (b *Binding) IsCell() bool {
	return b.Kind == KindIndex || b.Kind == KindName
}

// Declaration is the immutable binding table of one record type.
type Declaration struct {
	Type         reflect.Type
	Bindings     []Binding
	Constructors []Constructor
}

// Lookup returns the position of the binding for a Go field name.
func (d *Declaration) Lookup(field string) (int, bool) {
	for i := range d.Bindings {
		if d.Bindings[i].Field == field {
			return i, true
		}
	}
	return -1, false
}

// First returns the position of the first binding of kind.
func (d *Declaration) First(kind Kind) (int, bool) {
	for i := range d.Bindings {
		if d.Bindings[i].Kind == kind {
			return i, true
		}
	}
	return -1, false
}

// Width is the number of columns a list element of this type spans by
// default: the count of its cell bindings.
func (d *Declaration) Width() int {
	n := 0
	for i := range d.Bindings {
		if d.Bindings[i].IsCell() {
			n++
		}
	}
	return n
}

// Constructor declares a function that builds an immutable record.
//
// Func must return T, *T, (T, error) or (*T, error). Params names, per
// parameter, the Go field whose value it receives; an empty string leaves
// the parameter at its default. When Params is nil the mapping is found by
// probing. When a type has several constructors exactly one must be Primary.
type Constructor struct {
	Func    interface{}
	Params  []string
	Primary bool
}

// Constructable is implemented by types that are built through constructors
// instead of field assignment.
type Constructable interface {
	CellConstructors() []Constructor
}

// Index binds field to column col.
func Index(field string, col int) Binding {
	return Binding{Field: field, Kind: KindIndex, Column: col, Order: -1, End: Unbounded}
}

// Name binds field to the first column headed by any of names.
func Name(field string, names ...string) Binding {
	return Binding{Field: field, Kind: KindName, Names: names, Order: -1, End: Unbounded}
}

// Required marks b as mandatory in the header.
func (b Binding) Required() Binding {
	b.Mandatory = true
	return b
}

// At sets the write position of b.
func (b Binding) At(order int) Binding {
	b.Order = order
	return b
}

// Row binds field to the row number.
func Row(field string) Binding {
	return Binding{Field: field, Kind: KindRow, Order: -1, End: Unbounded}
}

// Unknown binds field to the bucket of unbound columns.
func Unknown(field string) Binding {
	return Binding{Field: field, Kind: KindUnknown, Order: -1, End: Unbounded}
}

// Errors binds field to the per-row cast failures.
func Errors(field string) Binding {
	return Binding{Field: field, Kind: KindErrors, Order: -1, End: Unbounded}
}

// Range binds a nested struct field over columns start..end.
func Range(field string, start, end int) Binding {
	return Binding{Field: field, Kind: KindRange, Order: -1, Start: start, End: end}
}

// List binds a slice-of-struct field over columns start..end, stride
// columns per element. A zero stride uses the element width.
func List(field string, start, end, stride int) Binding {
	return Binding{Field: field, Kind: KindList, Order: -1, Start: start, End: end, Stride: stride}
}
