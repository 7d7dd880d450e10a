// Package assembler turns an accumulator into a record value.
//
// Types without constructors are built by field assignment. Types with
// constructors are built by calling the chosen constructor; its parameters
// map to bindings either explicitly or by probing, and the mapping is
// cached per constructor. Map and slice bindings no parameter claimed are
// merged into the constructed record afterwards.
package assembler

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/resolver"
)

// planKey identifies a constructor by its slot in the declaration. Closures
// of one function literal share a code pointer, so the pointer alone is not
// enough.
type planKey struct {
	t    reflect.Type
	slot int
	fn   uintptr
}

// plan maps each constructor parameter to a binding position, -1 when
// nothing feeds it.
type plan struct {
	params  []int
	claimed map[int]bool
}

// Assembler builds records from accumulators. It is safe for concurrent use.
type Assembler struct {
	probes *ProbeRegistry
	opts   *config.Options
	log    *zap.Logger

	plans sync.Map // planKey -> *plan
}

// New creates an Assembler. A nil probes uses NewProbeRegistry.
func New(probes *ProbeRegistry, opts *config.Options, log *zap.Logger) *Assembler {
	if probes == nil {
		probes = NewProbeRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{probes: probes, opts: opts, log: log}
}

// Assemble builds the record described by acc. The result has the
// declaration's struct type.
func (a *Assembler) Assemble(acc *resolver.Accumulator) (reflect.Value, error) {
	return a.assemble(acc.Declaration(), acc)
}

func (a *Assembler) assemble(decl *binding.Declaration, acc *resolver.Accumulator) (reflect.Value, error) {
	values, err := a.values(decl, acc)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(decl.Constructors) == 0 {
		rec := reflect.New(decl.Type).Elem()
		for i := range decl.Bindings {
			if values[i].IsValid() {
				binding.Field(rec, decl.Bindings[i].Index).Set(values[i])
			}
		}
		return rec, nil
	}
	return a.construct(decl, values)
}

// values computes the value of every binding; invalid entries leave the
// field at its zero value.
func (a *Assembler) values(decl *binding.Declaration, acc *resolver.Accumulator) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(decl.Bindings))
	for i := range decl.Bindings {
		b := &decl.Bindings[i]
		switch b.Kind {
		case binding.KindIndex, binding.KindName:
			if v, ok := acc.Value(i); ok {
				out[i] = v
			}
		case binding.KindRow:
			out[i] = reflect.ValueOf(acc.Row()).Convert(b.Type)
		case binding.KindUnknown:
			m := make(map[string]string, len(acc.Unknown()))
			for k, v := range acc.Unknown() {
				m[k] = v
			}
			out[i] = reflect.ValueOf(m)
		case binding.KindErrors:
			m := make(map[string]error, len(acc.Errors()))
			for k, v := range acc.Errors() {
				m[k] = v
			}
			out[i] = reflect.ValueOf(m)
		case binding.KindRange:
			nested := acc.Nested(i)
			if nested == nil {
				continue
			}
			v, err := a.assemble(b.Elem, nested)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case binding.KindList:
			elems := trimEmpty(acc.Elements(i))
			list := reflect.MakeSlice(b.Type, 0, len(elems))
			for _, e := range elems {
				if e == nil {
					e = acc.Blank(i)
				}
				v, err := a.assemble(b.Elem, e)
				if err != nil {
					return nil, err
				}
				list = reflect.Append(list, v)
			}
			out[i] = list
		}
	}
	return out, nil
}

// trimEmpty drops the trailing elements no non-empty cell reached. Gaps
// before the last filled element are kept.
func trimEmpty(elems []*resolver.Accumulator) []*resolver.Accumulator {
	n := len(elems)
	for n > 0 && (elems[n-1] == nil || !elems[n-1].Filled()) {
		n--
	}
	return elems[:n]
}

func (a *Assembler) construct(decl *binding.Declaration, values []reflect.Value) (reflect.Value, error) {
	slot, err := choose(decl)
	if err != nil {
		return reflect.Value{}, err
	}
	ctor := decl.Constructors[slot]
	p, err := a.plan(decl, slot, ctor)
	if err != nil {
		return reflect.Value{}, err
	}

	fn := reflect.ValueOf(ctor.Func)
	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		in := ft.In(i)
		args[i] = reflect.Zero(in)
		if pos := p.params[i]; pos >= 0 && values[pos].IsValid() {
			v := values[pos]
			if v.Type() != in && v.Type().ConvertibleTo(in) {
				v = v.Convert(in)
			}
			if v.Type().AssignableTo(in) {
				args[i] = v
			}
		}
	}

	rec, err := call(decl, fn, args)
	if err != nil {
		return reflect.Value{}, err
	}

	for i := range decl.Bindings {
		if p.claimed[i] || !values[i].IsValid() {
			continue
		}
		merge(binding.Field(rec, decl.Bindings[i].Index), values[i])
	}
	return rec, nil
}

// choose returns the slot of the only constructor or of the single primary
// one.
func choose(decl *binding.Declaration) (int, error) {
	if len(decl.Constructors) == 1 {
		return 0, nil
	}
	var primary []int
	for i, c := range decl.Constructors {
		if c.Primary {
			primary = append(primary, i)
		}
	}
	switch len(primary) {
	case 0:
		return -1, errors.Newf(errors.ErrorTypeConstructor,
			"several constructors were found in %s, mark one of them as primary", decl.Type)
	case 1:
		return primary[0], nil
	}
	return -1, errors.Newf(errors.ErrorTypeConstructor,
		"several constructors are marked as primary in %s", decl.Type)
}

// call invokes fn and returns an addressable record.
func call(decl *binding.Declaration, fn reflect.Value, args []reflect.Value) (rec reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeConstructor, "constructor of %s panicked: %v", decl.Type, r)
		}
	}()

	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, errors.Wrap(out[1].Interface().(error), errors.ErrorTypeConstructor,
			fmt.Sprintf("constructor of %s failed", decl.Type))
	}

	v := out[0]
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errors.Newf(errors.ErrorTypeConstructor, "constructor of %s returned nil", decl.Type)
		}
		v = v.Elem()
	}
	rec = reflect.New(decl.Type).Elem()
	rec.Set(v)
	return rec, nil
}

// merge adds the entries of v to field: maps gain keys, slices gain
// elements, anything else is left alone.
func merge(field, v reflect.Value) {
	switch field.Kind() {
	case reflect.Map:
		if v.Len() == 0 {
			return
		}
		if field.IsNil() {
			field.Set(reflect.MakeMapWithSize(field.Type(), v.Len()))
		}
		iter := v.MapRange()
		for iter.Next() {
			field.SetMapIndex(iter.Key(), iter.Value())
		}
	case reflect.Slice:
		if v.Len() > 0 {
			field.Set(reflect.AppendSlice(field, v))
		}
	}
}

func (a *Assembler) plan(decl *binding.Declaration, slot int, ctor binding.Constructor) (*plan, error) {
	fn := reflect.ValueOf(ctor.Func)
	key := planKey{t: decl.Type, slot: slot, fn: fn.Pointer()}
	if p, ok := a.plans.Load(key); ok {
		return p.(*plan), nil
	}

	var (
		p   *plan
		err error
	)
	if ctor.Params != nil {
		p, err = explicitPlan(decl, fn.Type(), ctor.Params)
	} else {
		p = a.probePlan(decl, fn)
	}
	if err != nil {
		return nil, err
	}

	for i, pos := range p.params {
		if pos >= 0 {
			continue
		}
		if a.opts.StrictConstructors {
			return nil, errors.Newf(errors.ErrorTypeConstructor,
				"parameter %d (%s) of the %s constructor maps to no binding", i, fn.Type().In(i), decl.Type)
		}
		a.log.Warn("constructor parameter left at default",
			zap.String("target", decl.Type.String()),
			zap.Int("param", i),
			zap.String("type", fn.Type().In(i).String()))
	}

	actual, _ := a.plans.LoadOrStore(key, p)
	return actual.(*plan), nil
}

func explicitPlan(decl *binding.Declaration, ft reflect.Type, params []string) (*plan, error) {
	p := &plan{params: make([]int, len(params)), claimed: make(map[int]bool)}
	for i, field := range params {
		p.params[i] = -1
		if field == "" {
			continue
		}
		pos, ok := decl.Lookup(field)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeConstructor,
				"parameter %d of the %s constructor names %s, which has no binding", i, decl.Type, field)
		}
		if bt := decl.Bindings[pos].Type; !bt.AssignableTo(ft.In(i)) && !bt.ConvertibleTo(ft.In(i)) {
			return nil, errors.Newf(errors.ErrorTypeConstructor,
				"parameter %d of the %s constructor is %s, binding %s is %s", i, decl.Type, ft.In(i), field, bt)
		}
		p.params[i] = pos
		p.claimed[pos] = true
	}
	return p, nil
}

// probePlan calls the constructor once per parameter with only that
// parameter set to a probe value, then looks for the bound field that
// holds it.
func (a *Assembler) probePlan(decl *binding.Declaration, fn reflect.Value) *plan {
	ft := fn.Type()
	p := &plan{params: make([]int, ft.NumIn()), claimed: make(map[int]bool)}

	for i := range p.params {
		p.params[i] = -1
		probe, ok := a.probes.Probe(ft.In(i))
		if !ok {
			continue
		}
		args := make([]reflect.Value, ft.NumIn())
		for j := range args {
			args[j] = reflect.Zero(ft.In(j))
		}
		args[i] = probe

		rec, err := call(decl, fn, args)
		if err != nil {
			a.log.Debug("constructor probe failed",
				zap.String("target", decl.Type.String()),
				zap.Int("param", i),
				zap.Error(err))
			continue
		}

		for pos := range decl.Bindings {
			if p.claimed[pos] {
				continue
			}
			if same(binding.Field(rec, decl.Bindings[pos].Index), probe) {
				p.params[i] = pos
				p.claimed[pos] = true
				break
			}
		}
	}
	return p
}
