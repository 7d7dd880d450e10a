package caster

import (
	"encoding"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Format renders v as cell text using the pass options. It is the inverse
// of Cast for every supported type; nil pointers and nil lists render empty.
func (c *Caster) Format(v reflect.Value) (string, error) {
	if !v.IsValid() {
		return "", nil
	}

	t := v.Type()
	switch {
	case t.Kind() == reflect.Pointer:
		if v.IsNil() {
			return "", nil
		}
		return c.formatScalar(v.Elem())
	case supportsScalar(t):
		return c.formatScalar(v)
	case isList(t):
		parts := make([]string, v.Len())
		for i := range parts {
			s, err := c.formatScalar(v.Index(i))
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, c.opts.ListDelimiter), nil
	case isSet(t):
		parts := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			s, err := c.formatScalar(iter.Key())
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		sort.Strings(parts)
		return strings.Join(parts, c.opts.ListDelimiter), nil
	}
	return c.formatScalar(v)
}

func (c *Caster) formatScalar(v reflect.Value) (string, error) {
	t := v.Type()
	switch t {
	case timeType:
		return v.Interface().(time.Time).Format(c.opts.DatePattern), nil
	case dateType:
		return v.Interface().(civil.Date).In(time.UTC).Format(c.opts.DatePattern), nil
	case dateTimeType:
		return v.Interface().(civil.DateTime).In(time.UTC).Format(c.opts.DateTimePattern), nil
	case decimalType:
		return v.Interface().(decimal.Decimal).String(), nil
	}

	if t.Implements(enumType) {
		names := v.Interface().(Enum).Names()
		switch t.Kind() {
		case reflect.String:
			return v.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if i := v.Int(); i >= 0 && i < int64(len(names)) {
				return names[i], nil
			}
			return strconv.FormatInt(v.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if i := v.Uint(); i < uint64(len(names)) {
				return names[i], nil
			}
			return strconv.FormatUint(v.Uint(), 10), nil
		}
	}
	if t.Implements(textMarshalerType) {
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeData, "cannot format "+t.String())
		}
		return string(b), nil
	}

	switch t.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, t.Bits()), nil
	}
	return "", errors.Newf(errors.ErrorTypeCapability, "cannot format values of type %s", t)
}
