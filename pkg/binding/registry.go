package binding

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/ajitpratap0/cellbind/pkg/caster"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

var (
	stringMapType = reflect.TypeOf(map[string]string(nil))
	errorMapType  = reflect.TypeOf(map[string]error(nil))
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// Registry caches declarations per record type. Reads are lock-free once a
// declaration is built; builds are serialized.
type Registry struct {
	decls sync.Map // reflect.Type -> *Declaration

	mu    sync.Mutex
	ctors map[reflect.Type][]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[reflect.Type][]Constructor)}
}

// For returns the declaration of T.
func For[T any](r *Registry) (*Declaration, error) {
	return r.Declaration(reflect.TypeOf((*T)(nil)).Elem())
}

// Declaration returns the cached declaration of t, building it from struct
// tags on first use. Pointer types resolve to their element type.
func (r *Registry) Declaration(t reflect.Type) (*Declaration, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if d, ok := r.decls.Load(t); ok {
		return d.(*Declaration), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.declaration(t, make(map[reflect.Type]bool))
}

// Declare installs an explicit binding table for t instead of reading its
// tags. Bindings are usually made with Index, Name, Row, Unknown, Errors,
// Range and List; Index and Type are derived from Field, and Elem is built
// when left nil.
func (r *Registry) Declare(t reflect.Type, bindings ...Binding) error {
	if t.Kind() != reflect.Struct {
		return errors.Newf(errors.ErrorTypeConfig, "cannot declare bindings for non-struct type %s", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decls.Load(t); ok {
		return errors.Newf(errors.ErrorTypeConfig, "bindings for %s are already declared", t)
	}

	building := map[reflect.Type]bool{t: true}
	decl := &Declaration{Type: t}
	for _, b := range bindings {
		f, ok := t.FieldByName(b.Field)
		if !ok {
			return errors.Newf(errors.ErrorTypeConfig, "%s has no field %s", t, b.Field)
		}
		b.Index = append([]int(nil), f.Index...)
		b.Type = f.Type
		b.Names = append([]string(nil), b.Names...)
		if err := r.complete(t, &b, building); err != nil {
			return err
		}
		decl.Bindings = append(decl.Bindings, b)
	}
	if err := r.attachConstructors(decl); err != nil {
		return err
	}
	if err := checkSingletons(decl); err != nil {
		return err
	}

	r.decls.Store(t, decl)
	return nil
}

// RegisterConstructors declares constructors for t. It must happen before
// the declaration of t is first built.
func (r *Registry) RegisterConstructors(t reflect.Type, ctors ...Constructor) error {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decls.Load(t); ok {
		return errors.Newf(errors.ErrorTypeConfig, "declaration of %s is already built, register constructors first", t)
	}
	r.ctors[t] = append(r.ctors[t], ctors...)
	return nil
}

func (r *Registry) declaration(t reflect.Type, building map[reflect.Type]bool) (*Declaration, error) {
	if d, ok := r.decls.Load(t); ok {
		return d.(*Declaration), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf(errors.ErrorTypeConfig, "record type %s is not a struct", t)
	}
	if building[t] {
		return nil, errors.Newf(errors.ErrorTypeConfig, "record type %s contains itself", t)
	}
	building[t] = true
	defer delete(building, t)

	decl := &Declaration{Type: t}
	if err := r.collect(t, t, nil, decl, building); err != nil {
		return nil, err
	}
	if err := r.attachConstructors(decl); err != nil {
		return nil, err
	}
	if err := checkSingletons(decl); err != nil {
		return nil, err
	}

	r.decls.Store(t, decl)
	return decl, nil
}

// collect reads tags of t, flattening untagged embedded structs into owner.
func (r *Registry) collect(owner, t reflect.Type, prefix []int, decl *Declaration, building map[reflect.Type]bool) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		tag, tagged := f.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		if !tagged {
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				if err := r.collect(owner, f.Type, index, decl, building); err != nil {
					return err
				}
			}
			continue
		}

		ts, err := parseTag(owner.String()+"."+f.Name, tag)
		if err != nil {
			return err
		}

		b := Binding{
			Field:     f.Name,
			Index:     index,
			Type:      f.Type,
			Kind:      ts.kind,
			Column:    ts.column,
			Names:     ts.names,
			Order:     ts.order,
			Mandatory: ts.mandatory,
			Start:     ts.start,
			End:       ts.end,
			Stride:    ts.stride,
			ReadOnly:  ts.readOnly,
			WriteOnly: ts.writeOnly,
		}
		if err := r.complete(owner, &b, building); err != nil {
			return err
		}
		decl.Bindings = append(decl.Bindings, b)
	}
	return nil
}

// complete validates b against its field type and builds nested
// declarations.
func (r *Registry) complete(owner reflect.Type, b *Binding, building map[reflect.Type]bool) error {
	where := owner.String() + "." + b.Field

	switch b.Kind {
	case KindIndex, KindName:
		if !caster.Supports(b.Type) {
			return errors.Newf(errors.ErrorTypeCapability, "%s: unsupported destination type %s", where, b.Type)
		}
		if b.Kind == KindName && len(b.Names) == 0 {
			return errors.Newf(errors.ErrorTypeConfig, "%s: named binding without names", where)
		}
	case KindRow:
		switch b.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return errors.Newf(errors.ErrorTypeConfig, "%s: row binding needs an integer field, got %s", where, b.Type)
		}
	case KindUnknown:
		if b.Type != stringMapType {
			return errors.Newf(errors.ErrorTypeConfig, "%s: unknown binding needs map[string]string, got %s", where, b.Type)
		}
	case KindErrors:
		if b.Type != errorMapType {
			return errors.Newf(errors.ErrorTypeConfig, "%s: errors binding needs map[string]error, got %s", where, b.Type)
		}
	case KindRange, KindList:
		elemType := b.Type
		if b.Kind == KindList {
			if b.Type.Kind() != reflect.Slice {
				return errors.Newf(errors.ErrorTypeConfig, "%s: list binding needs a slice, got %s", where, b.Type)
			}
			elemType = b.Type.Elem()
		}
		if elemType.Kind() != reflect.Struct {
			return errors.Newf(errors.ErrorTypeConfig, "%s: %s binding needs struct elements, got %s", where, b.Kind, elemType)
		}
		if b.End != Unbounded && b.End < b.Start {
			return errors.Newf(errors.ErrorTypeConfig, "%s: window end %d precedes start %d", where, b.End, b.Start)
		}
		if b.Elem == nil {
			elem, err := r.declaration(elemType, building)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, where)
			}
			b.Elem = elem
		}
		if b.Kind == KindList && b.Stride == 0 {
			b.Stride = b.Elem.Width()
		}
		if b.Kind == KindList && b.Stride <= 0 {
			return errors.Newf(errors.ErrorTypeConfig, "%s: list elements of %s bind no columns", where, elemType)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "%s: invalid binding kind %s", where, b.Kind)
	}
	return nil
}

func checkSingletons(decl *Declaration) error {
	seen := make(map[Kind]string)
	for _, b := range decl.Bindings {
		switch b.Kind {
		case KindRow, KindUnknown, KindErrors:
			if prev, dup := seen[b.Kind]; dup {
				return errors.Newf(errors.ErrorTypeConfig, "%s: both %s and %s are %s bindings", decl.Type, prev, b.Field, b.Kind)
			}
			seen[b.Kind] = b.Field
		}
	}
	return nil
}

func (r *Registry) attachConstructors(decl *Declaration) error {
	ctors := append([]Constructor(nil), r.ctors[decl.Type]...)
	if c, ok := reflect.New(decl.Type).Interface().(Constructable); ok {
		ctors = append(ctors, c.CellConstructors()...)
	}

	for i, c := range ctors {
		ft := reflect.TypeOf(c.Func)
		if ft == nil || ft.Kind() != reflect.Func || ft.IsVariadic() {
			return errors.Newf(errors.ErrorTypeConstructor, "constructor %d of %s is not a plain function", i, decl.Type)
		}
		if !returnsRecord(ft, decl.Type) {
			return errors.Newf(errors.ErrorTypeConstructor, "constructor %s of %s must return %s or *%s, optionally with error", ft, decl.Type, decl.Type, decl.Type)
		}
		if c.Params != nil && len(c.Params) != ft.NumIn() {
			return errors.Newf(errors.ErrorTypeConstructor, "constructor %s of %s maps %d of %d parameters", ft, decl.Type, len(c.Params), ft.NumIn())
		}
	}
	decl.Constructors = ctors
	return nil
}

func returnsRecord(ft reflect.Type, t reflect.Type) bool {
	switch ft.NumOut() {
	case 2:
		if ft.Out(1) != errorType {
			return false
		}
	case 1:
	default:
		return false
	}
	out := ft.Out(0)
	return out == t || (out.Kind() == reflect.Pointer && out.Elem() == t)
}

// Field returns the field of the addressable struct v at index as a
// settable value, reaching unexported fields.
func Field(v reflect.Value, index []int) reflect.Value {
	f := v.FieldByIndex(index)
	if !f.CanSet() && f.CanAddr() {
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}
	return f
}
