package assembler

import (
	"reflect"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cellbind/pkg/binding"
)

const probeDepth = 3

// ProbeRegistry supplies distinctive values used to discover which field a
// constructor parameter lands in. Values of registered types are produced by
// their probe functions; other types get a value derived from their kind.
type ProbeRegistry struct {
	mu     sync.RWMutex
	probes map[reflect.Type]func() reflect.Value
}

// NewProbeRegistry creates a registry that already knows the temporal and
// decimal types.
func NewProbeRegistry() *ProbeRegistry {
	p := &ProbeRegistry{probes: make(map[reflect.Type]func() reflect.Value)}
	RegisterProbe(p, func() time.Time { return time.Date(1901, 2, 3, 4, 5, 6, 7, time.UTC) })
	RegisterProbe(p, func() civil.Date { return civil.Date{Year: 1901, Month: 2, Day: 3} })
	RegisterProbe(p, func() civil.DateTime {
		return civil.DateTime{
			Date: civil.Date{Year: 1901, Month: 2, Day: 3},
			Time: civil.Time{Hour: 4, Minute: 5, Second: 6},
		}
	})
	RegisterProbe(p, func() decimal.Decimal { return decimal.New(1901, -3) })
	return p
}

// Register installs the probe of t.
func (p *ProbeRegistry) Register(t reflect.Type, probe func() reflect.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[t] = probe
}

// RegisterProbe installs a typed probe.
func RegisterProbe[T any](p *ProbeRegistry, probe func() T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	p.Register(t, func() reflect.Value { return reflect.ValueOf(probe()) })
}

// Probe returns a non-zero value of t, or false when none can be made.
func (p *ProbeRegistry) Probe(t reflect.Type) (reflect.Value, bool) {
	v := p.probe(t, probeDepth)
	if !v.IsValid() || v.IsZero() {
		return reflect.Value{}, false
	}
	return v, true
}

func (p *ProbeRegistry) probe(t reflect.Type, depth int) reflect.Value {
	p.mu.RLock()
	fn, ok := p.probes[t]
	p.mu.RUnlock()
	if ok {
		return fn()
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString("\x00cellbind-probe")
	case reflect.Bool:
		v.SetBool(true)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(1)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(1)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(1.5)
	case reflect.Map:
		v.Set(reflect.MakeMap(t))
	case reflect.Slice:
		v.Set(reflect.MakeSlice(t, 0, 1))
	case reflect.Pointer:
		v.Set(reflect.New(t.Elem()))
	case reflect.Struct:
		if depth == 0 {
			return v
		}
		for i := 0; i < t.NumField(); i++ {
			f := binding.Field(v, []int{i})
			if fv := p.probe(t.Field(i).Type, depth-1); fv.IsValid() {
				f.Set(fv)
			}
		}
	}
	return v
}

// same reports whether field holds probe. Reference kinds compare by
// identity.
func same(field, probe reflect.Value) bool {
	if field.Type() != probe.Type() {
		return false
	}
	switch field.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		return !field.IsNil() && field.Pointer() == probe.Pointer()
	}
	if field.Type().Comparable() {
		return field.Equal(probe)
	}
	return reflect.DeepEqual(field.Interface(), probe.Interface())
}
