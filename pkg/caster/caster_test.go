package caster

import (
	"errors"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/cellbind/pkg/config"
)

type color string

func (color) Names() []string { return []string{"RED", "GREEN"} }

type level int

func (level) Names() []string { return []string{"LOW", "HIGH"} }

var fixedNow = time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

func newCaster(t *testing.T, modify func(*config.Options)) *Caster {
	t.Helper()
	opts := config.NewOptions()
	if modify != nil {
		modify(opts)
	}
	c, err := New(opts, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return c
}

func cast[T any](t *testing.T, c *Caster, raw string) (T, error) {
	t.Helper()
	v, err := c.Cast(reflect.TypeOf((*T)(nil)).Elem(), raw, Location{Row: 1, Col: 2, Property: "field"})
	return v.Interface().(T), err
}

func TestCastScalars(t *testing.T) {
	c := newCaster(t, nil)

	n, err := cast[int](t, c, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = cast[int](t, c, "12.9")
	require.NoError(t, err)
	assert.Equal(t, 12, n, "integral destinations truncate")

	n64, err := cast[int64](t, c, "-3.7")
	require.NoError(t, err)
	assert.Equal(t, int64(-3), n64)

	n, err = cast[int](t, c, "1,234")
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	u, err := cast[uint16](t, c, "7")
	require.NoError(t, err)
	assert.Equal(t, uint16(7), u)

	f, err := cast[float64](t, c, "3.25")
	require.NoError(t, err)
	assert.Equal(t, 3.25, f)

	s, err := cast[string](t, c, " keep spaces ")
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", s)

	b, err := cast[bool](t, c, "yes")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = cast[bool](t, c, "FALSE")
	require.NoError(t, err)
	assert.False(t, b)

	d, err := cast[decimal.Decimal](t, c, "12.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromFloat(12.5)))
}

func TestCastFailuresYieldDefaults(t *testing.T) {
	c := newCaster(t, nil)

	n, err := cast[int8](t, c, "300")
	require.Error(t, err)
	assert.Equal(t, int8(0), n)

	var ce *CastError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "300", ce.Value)
	assert.Equal(t, "field", ce.Label())
	assert.Equal(t, 1, ce.Row)
	assert.Equal(t, 2, ce.Col)
	assert.Equal(t, int8(0), ce.Default)

	_, err = cast[uint](t, c, "-1")
	assert.Error(t, err)

	b, err := cast[bool](t, c, "maybe")
	assert.Error(t, err)
	assert.False(t, b)

	_, err = cast[float64](t, c, "1.2.3x")
	assert.Error(t, err)

	assert.Equal(t, "1.2.3x", c.LastError().Value)
}

func TestCastLocale(t *testing.T) {
	de := newCaster(t, func(o *config.Options) { o.Locale = "de-DE" })

	f, err := cast[float64](t, de, "1.234,5")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	n, err := cast[int](t, de, "1.234,9")
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	fr := newCaster(t, func(o *config.Options) { o.Locale = "fr-FR" })
	f, err = cast[float64](t, fr, "1 234,25")
	require.NoError(t, err)
	assert.Equal(t, 1234.25, f)

	ch := newCaster(t, func(o *config.Options) { o.Locale = "de-CH" })
	f, err = cast[float64](t, ch, "1’000.5")
	require.NoError(t, err)
	assert.Equal(t, 1000.5, f)
	f, err = cast[float64](t, ch, "1'000.5")
	require.NoError(t, err)
	assert.Equal(t, 1000.5, f)
}

func TestCastRegionalLocale(t *testing.T) {
	mx := newCaster(t, func(o *config.Options) { o.Locale = "es-MX" })
	f, err := cast[float64](t, mx, "1,234.5")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	es := newCaster(t, func(o *config.Options) { o.Locale = "es-ES" })
	f, err = cast[float64](t, es, "1.234,5")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	assert.Equal(t, numberFormat{group: ',', decimal: '.'}, formatFor(language.Make("es-MX")))
	assert.Equal(t, numberFormat{group: '.', decimal: ','}, formatFor(language.Make("es")))
	assert.Equal(t, numberFormat{group: '’', decimal: '.'}, formatFor(language.Make("de-CH")))
}

func TestCastEmpty(t *testing.T) {
	c := newCaster(t, nil)

	n, err := cast[int](t, c, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p, err := cast[*int](t, c, "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, *p)

	list, err := cast[[]int](t, c, "")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	tm, err := cast[time.Time](t, c, "")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, tm)

	nullable := newCaster(t, func(o *config.Options) { o.PreferNull = true })

	p, err = cast[*int](t, nullable, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	list, err = cast[[]int](t, nullable, "")
	require.NoError(t, err)
	assert.Nil(t, list)

	n, err = cast[int](t, nullable, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "non-nullable destinations ignore the null preference")
}

func TestCastPointerFailure(t *testing.T) {
	c := newCaster(t, nil)
	p, err := cast[*int](t, c, "abc")
	assert.Error(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, *p)

	nullable := newCaster(t, func(o *config.Options) { o.PreferNull = true })
	p, err = cast[*int](t, nullable, "abc")
	assert.Error(t, err)
	assert.Nil(t, p)

	v, err := cast[*float64](t, nullable, "2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, *v)
}

func TestCastDates(t *testing.T) {
	c := newCaster(t, nil)

	tm, err := cast[time.Time](t, c, "25/12/2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), tm)

	d, err := cast[civil.Date](t, c, "5/1/2024")
	require.Error(t, err, "day must be two digits in the default pattern")
	assert.Equal(t, civil.DateOf(fixedNow), d)

	d, err = cast[civil.Date](t, c, "05/1/2024")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 5}, d)

	dt, err := cast[civil.DateTime](t, c, "05/1/2024 10:30:15")
	require.NoError(t, err)
	assert.Equal(t, civil.DateTime{
		Date: civil.Date{Year: 2024, Month: time.January, Day: 5},
		Time: civil.Time{Hour: 10, Minute: 30, Second: 15},
	}, dt)
}

func TestCastDateGate(t *testing.T) {
	c := newCaster(t, func(o *config.Options) {
		o.DateRegex = `^\d{2}/\d{1,2}/\d{4}$`
	})

	d, err := cast[civil.Date](t, c, "2024-01-05")
	require.NoError(t, err, "gate rejections are not cast errors")
	assert.Equal(t, civil.DateOf(fixedNow), d)
	assert.Nil(t, c.LastError())

	nullable := newCaster(t, func(o *config.Options) {
		o.DateRegex = `^\d{2}/\d{1,2}/\d{4}$`
		o.PreferNull = true
	})
	p, err := cast[*time.Time](t, nullable, "2024-01-05")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCastDateGateMatchesWholeText(t *testing.T) {
	c := newCaster(t, func(o *config.Options) {
		o.DateRegex = `\d{2}/\d/\d{4}`
	})

	tm, err := cast[time.Time](t, c, "x01/2/2020y")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, tm)
	assert.Nil(t, c.LastError())

	tm, err = cast[time.Time](t, c, "01/2/2020")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), tm)
}

func TestCastEnums(t *testing.T) {
	c := newCaster(t, nil)

	col, err := cast[color](t, c, "GREEN")
	require.NoError(t, err)
	assert.Equal(t, color("GREEN"), col)

	col, err = cast[color](t, c, "green")
	assert.Error(t, err, "enum matching is case-sensitive")
	assert.Equal(t, color(""), col)

	lv, err := cast[level](t, c, "HIGH")
	require.NoError(t, err)
	assert.Equal(t, level(1), lv)
}

func TestCastTextUnmarshaler(t *testing.T) {
	c := newCaster(t, nil)

	ip, err := cast[net.IP](t, c, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip.String())

	_, err = cast[net.IP](t, c, "not-an-ip")
	assert.Error(t, err)
}

func TestCastListsAndSets(t *testing.T) {
	c := newCaster(t, nil)

	ints, err := cast[[]int](t, c, "1, 2,x")
	var ce *CastError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "x", ce.Value)
	assert.Equal(t, []int{1, 2, 0}, ints)

	_, err = cast[[]int](t, c, "a,b")
	var many CastErrors
	require.ErrorAs(t, err, &many)
	assert.Len(t, many, 2)

	semi := newCaster(t, func(o *config.Options) { o.ListDelimiter = ";" })
	words, err := cast[[]string](t, semi, "a;b,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c"}, words)

	set, err := cast[map[string]struct{}](t, c, "a,b,a")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "b")
}

func TestErrorCollection(t *testing.T) {
	c := newCaster(t, nil)
	_, _ = cast[int](t, c, "x")

	_, err := c.Errors()
	assert.ErrorIs(t, err, ErrCollectDisabled)
	assert.NotNil(t, c.LastError(), "last error is kept regardless of collection")

	collecting := newCaster(t, func(o *config.Options) { o.CollectErrors = true })
	_, _ = cast[int](t, collecting, "x")
	_, _ = cast[int](t, collecting, "7")
	_, _ = cast[bool](t, collecting, "y?")

	errs, err := collecting.Errors()
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "x", errs[0].Value)
	assert.Equal(t, "y?", errs[1].Value)

	collecting.Reset()
	errs, err = collecting.Errors()
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Nil(t, collecting.LastError())
}

func TestCastTrimCellValue(t *testing.T) {
	c := newCaster(t, func(o *config.Options) { o.TrimCellValue = true })
	s, err := cast[string](t, c, "  padded ")
	require.NoError(t, err)
	assert.Equal(t, "padded", s)
}

func TestLabelFallsBackToColumn(t *testing.T) {
	e := &CastError{Col: 3}
	assert.Equal(t, "[3]", e.Label())
}

func TestSupports(t *testing.T) {
	supported := []interface{}{
		0, "", false, 1.5, uint8(1), time.Time{}, civil.Date{}, civil.DateTime{},
		decimal.Decimal{}, color(""), level(0), net.IP{}, (*int)(nil), []string{},
		map[int]struct{}{},
	}
	for _, v := range supported {
		assert.True(t, Supports(reflect.TypeOf(v)), "%T", v)
	}

	unsupported := []interface{}{
		struct{}{}, map[string]string{}, complex64(0), [][]int{}, (**int)(nil),
	}
	for _, v := range unsupported {
		assert.False(t, Supports(reflect.TypeOf(v)), "%T", v)
	}
}

func TestFormatInvertsCast(t *testing.T) {
	c := newCaster(t, nil)
	cases := []struct {
		typ reflect.Type
		raw string
	}{
		{reflect.TypeOf(0), "42"},
		{reflect.TypeOf(true), "true"},
		{reflect.TypeOf(0.0), "3.5"},
		{reflect.TypeOf(decimal.Decimal{}), "12.5"},
		{reflect.TypeOf(civil.Date{}), "25/12/2023"},
		{reflect.TypeOf(civil.DateTime{}), "25/12/2023 10:30:15"},
		{reflect.TypeOf(level(0)), "HIGH"},
		{reflect.TypeOf(color("")), "RED"},
		{reflect.TypeOf([]int{}), "1,2,3"},
		{reflect.TypeOf(net.IP{}), "10.0.0.1"},
	}
	for _, tc := range cases {
		v, err := c.Cast(tc.typ, tc.raw, Location{})
		require.NoError(t, err, tc.raw)
		s, err := c.Format(v)
		require.NoError(t, err)
		assert.Equal(t, tc.raw, s)
	}

	s, err := c.Format(reflect.ValueOf((*int)(nil)))
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestConversion(t *testing.T) {
	upper := func(t reflect.Type, raw string) (reflect.Value, bool, error) {
		switch {
		case t.Kind() != reflect.String:
			return reflect.Value{}, false, nil
		case raw == "bad":
			return reflect.Value{}, true, errors.New("refused")
		case raw == "wrong":
			return reflect.ValueOf(7), true, nil
		}
		return reflect.ValueOf(strings.ToUpper(raw)), true, nil
	}
	opts := config.NewOptions()
	opts.CollectErrors = true
	c, err := New(opts, WithConversion(upper))
	require.NoError(t, err)

	s, err := cast[string](t, c, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ADA", s)

	n, err := cast[int](t, c, "12")
	require.NoError(t, err)
	assert.Equal(t, 12, n, "unhandled types fall through")

	s, err = cast[string](t, c, "bad")
	require.Error(t, err)
	assert.Equal(t, "", s)
	assert.EqualError(t, c.LastError().Cause, "refused")

	_, err = cast[string](t, c, "wrong")
	require.Error(t, err)
	assert.Contains(t, c.LastError().Cause.Error(), "conversion produced int")

	all, err := c.Errors()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
