package writer

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/ajitpratap0/cellbind/pkg/binding"
)

// getter reaches the value a column reads from an addressable root record.
// It returns an invalid value when the path is absent, such as a list
// element beyond the end of the slice.
type getter func(root reflect.Value) reflect.Value

// Column is one output column of a record type.
type Column struct {
	Index  int
	Header string
	// Path is the property path, as in a resolver column map
	Path string
	// Binding is the cell binding written here, nil for unknown-bucket
	// columns
	Binding *binding.Binding

	get getter
}

// Value returns the value of the column in root, which must be an
// addressable record.
func (c Column) Value(root reflect.Value) reflect.Value {
	return c.get(root)
}

type placer struct {
	taken map[int]bool
	cols  []Column
}

func (p *placer) put(c Column) {
	if p.taken[c.Index] {
		return
	}
	p.taken[c.Index] = true
	p.cols = append(p.cols, c)
}

func (p *placer) free() int {
	i := 0
	for p.taken[i] {
		i++
	}
	return i
}

// Layout places the columns of decl. Explicit indexes and ordered names
// keep their positions, unordered names fill the remaining gaps in
// declaration order, and unknown-bucket keys found in roots follow, sorted.
// roots also decide how many list elements are written. Read-only
// bindings are left out.
func Layout(decl *binding.Declaration, roots []reflect.Value) []Column {
	cols := layout(decl, roots, func(root reflect.Value) reflect.Value { return root })
	sort.Slice(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
	return cols
}

func layout(decl *binding.Declaration, roots []reflect.Value, self getter) []Column {
	p := &placer{taken: make(map[int]bool)}
	var unordered []int
	unknown := -1

	for i := range decl.Bindings {
		b := &decl.Bindings[i]
		if b.ReadOnly {
			continue
		}
		get := fieldGetter(self, b.Index)

		switch b.Kind {
		case binding.KindIndex:
			p.put(Column{Index: b.Column, Header: b.Field, Path: b.Field, Binding: b, get: get})
		case binding.KindName:
			if b.Order >= 0 {
				p.put(Column{Index: b.Order, Header: b.Label(), Path: b.Field, Binding: b, get: get})
			} else {
				unordered = append(unordered, i)
			}
		case binding.KindRange:
			for _, c := range layout(b.Elem, roots, get) {
				c.Index += b.Start
				if b.Contains(c.Index) {
					c.Path = b.Field + "." + c.Path
					p.put(c)
				}
			}
		case binding.KindList:
			for e := 0; e < elements(b, roots, get); e++ {
				for _, c := range layout(b.Elem, roots, elementGetter(get, e)) {
					if c.Index >= b.Stride {
						continue
					}
					c.Index += b.Start + e*b.Stride
					c.Path = fmt.Sprintf("%s[%d].%s", b.Field, e, c.Path)
					p.put(c)
				}
			}
		case binding.KindUnknown:
			unknown = i
		}
	}

	for _, i := range unordered {
		b := &decl.Bindings[i]
		p.put(Column{Index: p.free(), Header: b.Label(), Path: b.Field, Binding: b, get: fieldGetter(self, b.Index)})
	}

	if unknown >= 0 {
		b := &decl.Bindings[unknown]
		get := fieldGetter(self, b.Index)
		for _, key := range unknownKeys(roots, get) {
			p.put(Column{
				Index:  p.free(),
				Header: key,
				Path:   fmt.Sprintf("%s[%s]", b.Field, key),
				get:    mapGetter(get, key),
			})
		}
	}
	return p.cols
}

// elements is the number of list elements to lay out: the longest list in
// roots, capped by the window.
func elements(b *binding.Binding, roots []reflect.Value, get getter) int {
	n := 0
	for _, root := range roots {
		if v := get(root); v.IsValid() && v.Len() > n {
			n = v.Len()
		}
	}
	if b.End != binding.Unbounded {
		if capacity := (b.End - b.Start + 1) / b.Stride; n > capacity {
			n = capacity
		}
	}
	return n
}

func unknownKeys(roots []reflect.Value, get getter) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, root := range roots {
		m := get(root)
		if !m.IsValid() || m.IsNil() {
			continue
		}
		iter := m.MapRange()
		for iter.Next() {
			if k := iter.Key().String(); !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func fieldGetter(parent getter, index []int) getter {
	return func(root reflect.Value) reflect.Value {
		v := parent(root)
		if !v.IsValid() {
			return v
		}
		return binding.Field(v, index)
	}
}

func elementGetter(list getter, e int) getter {
	return func(root reflect.Value) reflect.Value {
		v := list(root)
		if !v.IsValid() || e >= v.Len() {
			return reflect.Value{}
		}
		return v.Index(e)
	}
}

func mapGetter(m getter, key string) getter {
	return func(root reflect.Value) reflect.Value {
		v := m(root)
		if !v.IsValid() || v.IsNil() {
			return reflect.Value{}
		}
		return v.MapIndex(reflect.ValueOf(key))
	}
}
