// Package caster converts raw cell text into typed Go values.
//
// A Caster belongs to one resolution pass. It applies the pass options
// (null preference, date patterns and gates, locale separators, list
// delimiter) and never aborts on bad input: a failed conversion yields the
// destination default together with a *CastError, which is also kept as the
// pass's last error and, when collection is enabled, appended to the pass's
// error list.
package caster

import (
	"encoding"
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/metrics"
)

// Enum is implemented by named string or integer types that bind by
// constant name. Matching is exact and case-sensitive; integer kinds take
// the index of the matched name.
type Enum interface {
	Names() []string
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	dateType            = reflect.TypeOf(civil.Date{})
	dateTimeType        = reflect.TypeOf(civil.DateTime{})
	decimalType         = reflect.TypeOf(decimal.Decimal{})
	setMemberType       = reflect.TypeOf(struct{}{})
	enumType            = reflect.TypeOf((*Enum)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// errRejected marks text refused by a date gate. The default is used and
// no error is recorded.
var errRejected = stderrors.New("rejected by pattern gate")

// Option configures a Caster.
type Option func(*Caster)

// WithClock overrides the clock used for empty date cells.
func WithClock(now func() time.Time) Option {
	return func(c *Caster) { c.now = now }
}

// Conversion converts raw text into a value of t ahead of the built-in
// rules. It reports handled as false to leave the cell to them. A returned
// value must be assignable to t.
type Conversion func(t reflect.Type, raw string) (v reflect.Value, handled bool, err error)

// WithConversion installs a conversion consulted before the built-in rules.
func WithConversion(fn Conversion) Option {
	return func(c *Caster) { c.conversion = fn }
}

// WithLogger sets the logger for cast failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Caster) { c.log = l }
}

// Caster converts cell text for a single pass.
type Caster struct {
	opts       *config.Options
	dateRe     *regexp.Regexp
	dateTimeRe *regexp.Regexp
	numbers    numberFormat
	conversion Conversion
	now        func() time.Time
	log        *zap.Logger

	mu   sync.Mutex
	last *CastError
	errs []*CastError
}

// New creates a Caster for opts.
func New(opts *config.Options, options ...Option) (*Caster, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	c := &Caster{
		opts: opts,
		now:  time.Now,
		log:  zap.NewNop(),
	}
	if opts.DateRegex != "" {
		c.dateRe = wholeMatch(opts.DateRegex)
	}
	if opts.DateTimeRegex != "" {
		c.dateTimeRe = wholeMatch(opts.DateTimeRegex)
	}
	c.numbers = formatFor(language.Make(opts.Locale))

	for _, o := range options {
		o(c)
	}
	return c, nil
}

// wholeMatch compiles a gate that must match the entire cell text.
func wholeMatch(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)$`)
}

// Cast converts raw into a value of type t. The returned value is always
// assignable to t. The error, when non-nil, is a *CastError or CastErrors.
func (c *Caster) Cast(t reflect.Type, raw string, at Location) (reflect.Value, error) {
	if c.opts.TrimCellValue {
		raw = strings.TrimSpace(raw)
	}

	if c.conversion != nil {
		if v, handled, err := c.custom(t, raw, at); handled {
			return v, err
		}
	}

	v, errs := c.convert(t, raw, at)
	if len(errs) == 0 {
		return v, nil
	}

	c.record(errs)
	if len(errs) == 1 {
		return v, errs[0]
	}
	return v, CastErrors(errs)
}

func (c *Caster) custom(t reflect.Type, raw string, at Location) (reflect.Value, bool, error) {
	v, handled, err := c.conversion(t, raw)
	if !handled {
		return reflect.Value{}, false, nil
	}
	if err == nil {
		switch {
		case !v.IsValid():
			err = fmt.Errorf("conversion produced no value for %s", t)
		case !v.Type().AssignableTo(t):
			err = fmt.Errorf("conversion produced %s, want %s", v.Type(), t)
		}
	}
	if err != nil {
		def := c.empty(t)
		e := c.newError(t, raw, at, def, err)
		c.record([]*CastError{e})
		return def, true, e
	}
	return v, true, nil
}

// LastError returns the most recent cast failure of the pass, or nil.
func (c *Caster) LastError() *CastError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Errors returns every cast failure of the pass in order. It fails with
// ErrCollectDisabled unless the options enable collection.
func (c *Caster) Errors() ([]*CastError, error) {
	if !c.opts.CollectErrors {
		return nil, ErrCollectDisabled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*CastError(nil), c.errs...), nil
}

// Reset forgets recorded failures.
func (c *Caster) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
	c.errs = nil
}

func (c *Caster) record(errs []*CastError) {
	c.mu.Lock()
	c.last = errs[len(errs)-1]
	if c.opts.CollectErrors {
		c.errs = append(c.errs, errs...)
	}
	c.mu.Unlock()

	for _, e := range errs {
		metrics.CastFailures.WithLabelValues(e.Type.String()).Inc()
		c.log.Debug("cell cast failed",
			zap.String("property", e.Label()),
			zap.Int("row", e.Row),
			zap.Int("col", e.Col),
			zap.String("value", e.Value),
			zap.Error(e.Cause))
	}
}

func (c *Caster) convert(t reflect.Type, raw string, at Location) (reflect.Value, []*CastError) {
	switch {
	case t.Kind() == reflect.Pointer:
		return c.convertPointer(t, raw, at)
	case supportsScalar(t):
	case isList(t):
		return c.convertList(t, raw, at)
	case isSet(t):
		return c.convertSet(t, raw, at)
	}

	v, err := c.scalar(t, raw)
	if err != nil && err != errRejected {
		return v, []*CastError{c.newError(t, raw, at, v, err)}
	}
	return v, nil
}

func (c *Caster) convertPointer(t reflect.Type, raw string, at Location) (reflect.Value, []*CastError) {
	if raw == "" && c.opts.PreferNull {
		return reflect.Zero(t), nil
	}

	v, err := c.scalar(t.Elem(), raw)
	if err != nil && c.opts.PreferNull {
		if err == errRejected {
			return reflect.Zero(t), nil
		}
		return reflect.Zero(t), []*CastError{c.newError(t, raw, at, reflect.Zero(t), err)}
	}

	p := reflect.New(t.Elem())
	p.Elem().Set(v)
	if err != nil && err != errRejected {
		return p, []*CastError{c.newError(t, raw, at, p, err)}
	}
	return p, nil
}

func (c *Caster) convertList(t reflect.Type, raw string, at Location) (reflect.Value, []*CastError) {
	if raw == "" {
		if c.opts.PreferNull {
			return reflect.Zero(t), nil
		}
		return reflect.MakeSlice(t, 0, 0), nil
	}

	parts := strings.Split(raw, c.opts.ListDelimiter)
	out := reflect.MakeSlice(t, 0, len(parts))
	var errs []*CastError
	for _, part := range parts {
		part = strings.TrimSpace(part)
		v, err := c.scalar(t.Elem(), part)
		if err != nil && err != errRejected {
			errs = append(errs, c.newError(t.Elem(), part, at, v, err))
		}
		out = reflect.Append(out, v)
	}
	return out, errs
}

func (c *Caster) convertSet(t reflect.Type, raw string, at Location) (reflect.Value, []*CastError) {
	if raw == "" {
		if c.opts.PreferNull {
			return reflect.Zero(t), nil
		}
		return reflect.MakeMap(t), nil
	}

	parts := strings.Split(raw, c.opts.ListDelimiter)
	out := reflect.MakeMapWithSize(t, len(parts))
	member := reflect.Zero(setMemberType)
	var errs []*CastError
	for _, part := range parts {
		part = strings.TrimSpace(part)
		v, err := c.scalar(t.Key(), part)
		if err != nil && err != errRejected {
			errs = append(errs, c.newError(t.Key(), part, at, v, err))
		}
		out.SetMapIndex(v, member)
	}
	return out, errs
}

// scalar converts to a non-pointer scalar type. On failure it returns the
// type default alongside the cause.
func (c *Caster) scalar(t reflect.Type, raw string) (reflect.Value, error) {
	if raw == "" {
		return c.empty(t), nil
	}

	switch t {
	case timeType:
		return c.parseTime(t, raw, c.opts.DatePattern, c.dateRe)
	case dateType:
		v, err := c.parseTime(timeType, raw, c.opts.DatePattern, c.dateRe)
		if err != nil {
			return c.empty(t), err
		}
		return reflect.ValueOf(civil.DateOf(v.Interface().(time.Time))), nil
	case dateTimeType:
		v, err := c.parseTime(timeType, raw, c.opts.DateTimePattern, c.dateTimeRe)
		if err != nil {
			return c.empty(t), err
		}
		return reflect.ValueOf(civil.DateTimeOf(v.Interface().(time.Time))), nil
	case decimalType:
		s, err := c.numbers.normalize(raw)
		if err != nil {
			return c.empty(t), err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return c.empty(t), err
		}
		return reflect.ValueOf(d), nil
	}

	if t.Implements(enumType) {
		return c.parseEnum(t, raw)
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		p := reflect.New(t)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return reflect.Zero(t), err
		}
		return p.Elem(), nil
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s, err := c.integralText(raw)
		if err != nil {
			return v, err
		}
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Zero(t), err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s, err := c.integralText(raw)
		if err != nil {
			return v, err
		}
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Zero(t), err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		s, err := c.numbers.normalize(raw)
		if err != nil {
			return v, err
		}
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Zero(t), err
		}
		v.SetFloat(f)
	default:
		return v, fmt.Errorf("unsupported destination type %s", t)
	}
	return v, nil
}

func (c *Caster) integralText(raw string) (string, error) {
	s, err := c.numbers.normalize(raw)
	if err != nil {
		return "", err
	}
	return integral(s)
}

// empty returns the default for a missing value: now for temporal types,
// the zero value otherwise.
func (c *Caster) empty(t reflect.Type) reflect.Value {
	switch t {
	case timeType:
		return reflect.ValueOf(c.now())
	case dateType:
		return reflect.ValueOf(civil.DateOf(c.now()))
	case dateTimeType:
		return reflect.ValueOf(civil.DateTimeOf(c.now()))
	}
	return reflect.Zero(t)
}

func (c *Caster) parseTime(t reflect.Type, raw, layout string, gate *regexp.Regexp) (reflect.Value, error) {
	if gate != nil && !gate.MatchString(raw) {
		return c.empty(t), errRejected
	}
	tm, err := time.Parse(layout, raw)
	if err != nil {
		return c.empty(t), err
	}
	return reflect.ValueOf(tm), nil
}

func (c *Caster) parseEnum(t reflect.Type, raw string) (reflect.Value, error) {
	names := reflect.Zero(t).Interface().(Enum).Names()
	v := reflect.New(t).Elem()
	for i, name := range names {
		if name != raw {
			continue
		}
		switch t.Kind() {
		case reflect.String:
			v.SetString(raw)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			v.SetInt(int64(i))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			v.SetUint(uint64(i))
		}
		return v, nil
	}
	return reflect.Zero(t), fmt.Errorf("%q is not a constant of %s", raw, t)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

func (c *Caster) newError(t reflect.Type, raw string, at Location, def reflect.Value, cause error) *CastError {
	e := &CastError{
		Value:    raw,
		Type:     t,
		Property: at.Property,
		Sheet:    at.Sheet,
		Row:      at.Row,
		Col:      at.Col,
		Cause:    cause,
	}
	if def.IsValid() && def.CanInterface() {
		e.Default = def.Interface()
	}
	return e
}

func isList(t reflect.Type) bool {
	return t.Kind() == reflect.Slice
}

func isSet(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem() == setMemberType
}

// Supports reports whether t can be produced from a single cell.
func Supports(t reflect.Type) bool {
	switch {
	case t.Kind() == reflect.Pointer:
		return supportsScalar(t.Elem())
	case supportsScalar(t):
		return true
	case isList(t):
		return supportsScalar(t.Elem())
	case isSet(t):
		return supportsScalar(t.Key())
	}
	return supportsScalar(t)
}

func supportsScalar(t reflect.Type) bool {
	switch t {
	case timeType, dateType, dateTimeType, decimalType:
		return true
	}
	if t.Implements(enumType) {
		switch t.Kind() {
		case reflect.String,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		}
		return false
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
