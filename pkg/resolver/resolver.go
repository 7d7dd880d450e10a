// Package resolver decides which column feeds which property.
//
// A Resolver is built per pass from a declaration. Header cells are
// registered in any order; FinalizeHeader then checks mandatory bindings
// and freezes the column map. Data cells are routed by priority: explicit
// column index, order hint or matched header name first, then a range or
// list window (re-indexed relative to the window origin), then the unknown
// bucket.
package resolver

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/caster"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/metrics"
)

// ColumnMap maps a column index to the property path bound there, such as
// "Name", "Home.City", "Phones[1].Number" or "Extra[Notes]".
type ColumnMap map[int]string

// Resolver maps the columns of one pass onto a declaration.
type Resolver struct {
	decl   *binding.Declaration
	opts   *config.Options
	caster *caster.Caster
	log    *zap.Logger
	sheet  string

	ordered    map[int]int // column -> binding position
	byName     map[string]int
	claimed    map[int]bool
	headerCols map[int]bool
	seen       map[string]bool
	unknown    map[int]string
	unknownPos int
	windows    []int
	nested     map[int]*Resolver
	forwarded  map[int]int // column -> window binding position

	final     ColumnMap
	finalized bool
}

// New creates a resolver for decl. Nested resolvers are created for every
// range and list binding.
func New(decl *binding.Declaration, opts *config.Options, c *caster.Caster, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		decl:       decl,
		opts:       opts,
		caster:     c,
		log:        log,
		ordered:    make(map[int]int),
		byName:     make(map[string]int),
		claimed:    make(map[int]bool),
		headerCols: make(map[int]bool),
		seen:       make(map[string]bool),
		unknown:    make(map[int]string),
		unknownPos: -1,
		nested:     make(map[int]*Resolver),
		forwarded:  make(map[int]int),
	}

	for i := range decl.Bindings {
		b := &decl.Bindings[i]
		if b.WriteOnly {
			continue
		}
		switch b.Kind {
		case binding.KindIndex:
			if _, taken := r.ordered[b.Column]; !taken {
				r.ordered[b.Column] = i
				r.claimed[i] = true
			}
		case binding.KindName:
			for _, name := range b.Names {
				key := r.transform(name)
				if _, taken := r.byName[key]; !taken {
					r.byName[key] = i
				}
			}
		case binding.KindRange, binding.KindList:
			r.windows = append(r.windows, i)
			r.nested[i] = New(b.Elem, opts, c, log)
		case binding.KindUnknown:
			r.unknownPos = i
		}
	}

	// an order hint pins a named binding to its column whatever the header says
	for i := range decl.Bindings {
		b := &decl.Bindings[i]
		if b.Kind != binding.KindName || b.Order < 0 || b.WriteOnly {
			continue
		}
		if _, taken := r.ordered[b.Order]; !taken {
			r.ordered[b.Order] = i
			r.claimed[i] = true
		}
	}
	return r
}

// SetSheet names the sheet reported in cast errors.
func (r *Resolver) SetSheet(name string) {
	r.sheet = name
	for _, n := range r.nested {
		n.SetSheet(name)
	}
}

// Declaration returns the declaration being resolved.
func (r *Resolver) Declaration() *binding.Declaration { return r.decl }

// Finalized reports whether FinalizeHeader succeeded.
func (r *Resolver) Finalized() bool { return r.finalized }

// Columns returns the frozen column map, or nil before finalization.
func (r *Resolver) Columns() ColumnMap {
	if !r.finalized {
		return nil
	}
	return maps.Clone(r.final)
}

func (r *Resolver) transform(text string) string {
	if r.opts.IgnoreWhitespaces {
		text = strings.TrimSpace(text)
	}
	if r.opts.CaseInsensitive {
		text = strings.ToLower(text)
	}
	return text
}

// RegisterHeader records the header text of col. The first column to match
// a binding claims it; empty or repeated header texts are kept apart as
// "text@col".
func (r *Resolver) RegisterHeader(col int, text string) {
	if r.finalized {
		return
	}
	r.headerCols[col] = true

	key := r.transform(text)
	unique := key != "" && !r.seen[key]
	r.seen[key] = true

	if _, taken := r.ordered[col]; taken {
		return
	}

	if unique {
		if pos, ok := r.byName[key]; ok && !r.claimed[pos] {
			r.ordered[col] = pos
			r.claimed[pos] = true
			r.log.Debug("header resolved",
				zap.Int("col", col),
				zap.String("header", text),
				zap.String("property", r.decl.Bindings[pos].Field))
			return
		}
	}

	if pos, ok := r.window(col); ok {
		b := &r.decl.Bindings[pos]
		r.forwarded[col] = pos
		r.nested[pos].RegisterHeader(r.rebase(b, col), text)
		return
	}

	if r.unknownPos >= 0 {
		if unique {
			r.unknown[col] = text
		} else {
			r.unknown[col] = fmt.Sprintf("%s@%d", text, col)
		}
	}
}

func (r *Resolver) window(col int) (int, bool) {
	for _, pos := range r.windows {
		if r.decl.Bindings[pos].Contains(col) {
			return pos, true
		}
	}
	return -1, false
}

func (r *Resolver) rebase(b *binding.Binding, col int) int {
	rel := col - b.Start
	if b.Kind == binding.KindList {
		return rel % b.Stride
	}
	return rel
}

// FinalizeHeader validates mandatory bindings and freezes the column map.
// It fails with a header-missing error naming every unmatched mandatory
// binding, nested ones included.
func (r *Resolver) FinalizeHeader() (ColumnMap, error) {
	if missing := r.missing(); len(missing) > 0 {
		metrics.HeaderFailures.Inc()
		r.log.Warn("mandatory headers missing",
			zap.String("target", r.decl.Type.String()),
			zap.Strings("missing", missing))
		return nil, errors.NewHeaderMissing(missing)
	}
	r.finalize()
	return r.Columns(), nil
}

func (r *Resolver) missing() []string {
	var out []string
	for _, pos := range r.windows {
		out = append(out, r.nested[pos].missing()...)
	}
	if r.opts.HeaderCount == 0 {
		return out
	}

	for i := range r.decl.Bindings {
		b := &r.decl.Bindings[i]
		if b.WriteOnly {
			continue
		}
		switch b.Kind {
		case binding.KindName:
			if (b.Mandatory || r.opts.NamedHeaderMandatory) && !r.claimed[i] && !r.present(b) {
				out = append(out, b.Label())
			}
		case binding.KindIndex:
			if b.Mandatory && !r.headerCols[b.Column] {
				out = append(out, b.Field)
			}
		}
	}
	return out
}

// present reports whether any header text matched one of b's names, even
// in a column another binding holds.
func (r *Resolver) present(b *binding.Binding) bool {
	for _, name := range b.Names {
		if r.seen[r.transform(name)] {
			return true
		}
	}
	return false
}

// finalize freezes nested resolvers first and merges their maps upward.
func (r *Resolver) finalize() {
	for _, pos := range r.windows {
		r.nested[pos].finalize()
	}

	m := make(ColumnMap, len(r.ordered)+len(r.unknown))
	for col, pos := range r.ordered {
		m[col] = r.decl.Bindings[pos].Field
	}
	if r.unknownPos >= 0 {
		field := r.decl.Bindings[r.unknownPos].Field
		for col, key := range r.unknown {
			m[col] = fmt.Sprintf("%s[%s]", field, key)
		}
	}

	for _, pos := range r.windows {
		b := &r.decl.Bindings[pos]
		sub := r.nested[pos].final
		switch b.Kind {
		case binding.KindRange:
			for rel, path := range sub {
				abs := b.Start + rel
				if _, taken := m[abs]; !taken && b.Contains(abs) {
					m[abs] = b.Field + "." + path
				}
			}
		case binding.KindList:
			for col, owner := range r.forwarded {
				if owner != pos {
					continue
				}
				rel := col - b.Start
				if path, ok := sub[rel%b.Stride]; ok {
					m[col] = fmt.Sprintf("%s[%d].%s", b.Field, rel/b.Stride, path)
				}
			}
		}
	}

	r.final = m
	r.finalized = true
}

// ResolveCell routes one data cell into acc.
func (r *Resolver) ResolveCell(row, col int, text string, acc *Accumulator) {
	r.resolve(row, col, col, text, acc)
}

func (r *Resolver) resolve(row, col, abs int, text string, acc *Accumulator) {
	if pos, ok := r.ordered[col]; ok {
		b := &r.decl.Bindings[pos]
		v, err := r.caster.Cast(b.Type, text, caster.Location{
			Sheet:    r.sheet,
			Row:      row,
			Col:      abs,
			Property: b.Label(),
		})
		acc.set(pos, v, text)
		if err != nil {
			acc.fail(err)
		}
		metrics.CellsResolved.WithLabelValues("direct").Inc()
		return
	}

	if pos, ok := r.window(col); ok {
		b := &r.decl.Bindings[pos]
		rel := col - b.Start
		if b.Kind == binding.KindRange {
			r.nested[pos].resolve(row, rel, abs, text, acc.nestedAt(pos))
		} else {
			r.nested[pos].resolve(row, rel%b.Stride, abs, text, acc.element(pos, rel/b.Stride))
		}
		return
	}

	if key, ok := r.unknown[col]; ok && text != "" {
		acc.putUnknown(key, text)
		metrics.CellsResolved.WithLabelValues("unknown").Inc()
		return
	}
	metrics.CellsResolved.WithLabelValues("unmapped").Inc()
}

// SortedColumns returns the columns of m in ascending order.
func SortedColumns(m ColumnMap) []int {
	cols := make([]int, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}
