package resolver

import (
	"reflect"

	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/caster"
)

// Accumulator holds the values gathered for one record before assembly.
// Nested ranges and list elements get their own accumulators; per-row cast
// failures always land in the root.
type Accumulator struct {
	decl *binding.Declaration
	root *Accumulator
	row  int

	values  []reflect.Value
	nested  map[int]*Accumulator
	elems   map[int][]*Accumulator
	unknown map[string]string
	errs    map[string]error
	filled  bool
}

// NewAccumulator creates an empty root accumulator for row.
func NewAccumulator(decl *binding.Declaration, row int) *Accumulator {
	a := &Accumulator{
		decl:   decl,
		row:    row,
		values: make([]reflect.Value, len(decl.Bindings)),
	}
	a.root = a
	return a
}

func (a *Accumulator) child(decl *binding.Declaration) *Accumulator {
	return &Accumulator{
		decl:   decl,
		root:   a.root,
		row:    a.row,
		values: make([]reflect.Value, len(decl.Bindings)),
	}
}

// Declaration returns the declaration the accumulator fills.
func (a *Accumulator) Declaration() *binding.Declaration { return a.decl }

// Row returns the row number of the record.
func (a *Accumulator) Row() int { return a.row }

// Value returns the cast value of the cell binding at pos.
func (a *Accumulator) Value(pos int) (reflect.Value, bool) {
	v := a.values[pos]
	return v, v.IsValid()
}

// Nested returns the accumulator of the range binding at pos, or nil when
// no cell reached it.
func (a *Accumulator) Nested(pos int) *Accumulator {
	return a.nested[pos]
}

// Elements returns the element accumulators of the list binding at pos.
// Elements that received no cell are nil.
func (a *Accumulator) Elements(pos int) []*Accumulator {
	return a.elems[pos]
}

// Unknown returns the unbound column values of this level.
func (a *Accumulator) Unknown() map[string]string { return a.unknown }

// Errors returns the per-row cast failures keyed by property label.
func (a *Accumulator) Errors() map[string]error { return a.root.errs }

// Filled reports whether any non-empty cell reached this level or a level
// below it.
func (a *Accumulator) Filled() bool {
	if a.filled || len(a.unknown) > 0 {
		return true
	}
	for _, n := range a.nested {
		if n.Filled() {
			return true
		}
	}
	for _, list := range a.elems {
		for _, e := range list {
			if e != nil && e.Filled() {
				return true
			}
		}
	}
	return false
}

// Blank returns an element accumulator for the list binding at pos that no
// cell reached. It stands in for gaps so later elements keep their index.
func (a *Accumulator) Blank(pos int) *Accumulator {
	return a.child(a.decl.Bindings[pos].Elem)
}

func (a *Accumulator) set(pos int, v reflect.Value, text string) {
	a.values[pos] = v
	if text != "" {
		a.filled = true
	}
}

func (a *Accumulator) nestedAt(pos int) *Accumulator {
	if a.nested == nil {
		a.nested = make(map[int]*Accumulator)
	}
	n, ok := a.nested[pos]
	if !ok {
		n = a.child(a.decl.Bindings[pos].Elem)
		a.nested[pos] = n
	}
	return n
}

func (a *Accumulator) element(pos, idx int) *Accumulator {
	if a.elems == nil {
		a.elems = make(map[int][]*Accumulator)
	}
	list := a.elems[pos]
	for len(list) <= idx {
		list = append(list, nil)
	}
	if list[idx] == nil {
		list[idx] = a.child(a.decl.Bindings[pos].Elem)
	}
	a.elems[pos] = list
	return list[idx]
}

func (a *Accumulator) putUnknown(key, value string) {
	if a.unknown == nil {
		a.unknown = make(map[string]string)
	}
	a.unknown[key] = value
}

func (a *Accumulator) fail(err error) {
	root := a.root
	if root.errs == nil {
		root.errs = make(map[string]error)
	}
	switch e := err.(type) {
	case *caster.CastError:
		root.errs[e.Label()] = e
	case caster.CastErrors:
		root.errs[e[0].Label()] = e
	}
}
