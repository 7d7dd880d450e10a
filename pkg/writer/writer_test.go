package writer

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cellbind/pkg/bind"
	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/csv"
	xlsxsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/xlsx"
)

type member struct {
	ID     int               `cell:"#0"`
	Name   string            `cell:"Name,order=2"`
	City   string            `cell:"City"`
	Born   civil.Date        `cell:"Born"`
	Secret string            `cell:"Secret,readonly"`
	Extra  map[string]string `cell:",unknown"`
}

var members = []member{
	{ID: 1, Name: "Ada", City: "Paris", Born: civil.Date{Year: 2001, Month: 2, Day: 3}, Secret: "s",
		Extra: map[string]string{"b": "2", "a": "1"}},
	{ID: 2, Name: "Bob, Jr", Born: civil.Date{Year: 1999, Month: 12, Day: 31},
		Extra: map[string]string{"a": "x"}},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSV[member](&buf, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(members))

	assert.Equal(t, "ID,City,Name,Born,a,b\n"+
		"1,Paris,Ada,03/2/2001,1,2\n"+
		"2,,\"Bob, Jr\",31/12/1999,x,\n", buf.String())
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSV[*member](&buf, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write([]*member{&members[0], nil, &members[1]}))

	src, err := csvsource.NewCSVSource(strings.NewReader(buf.String()), config.NewOptions())
	require.NoError(t, err)
	r, err := bind.NewReader[member](nil)
	require.NoError(t, err)
	got, err := r.ReadAll(context.Background(), core.Push(src))
	require.NoError(t, err)

	// the nil record became a blank row, which produces no record
	require.Len(t, got, 2)
	want := members[0]
	want.Secret = ""
	assert.Equal(t, want, got[0])
	assert.Equal(t, members[1].Name, got[1].Name)
	assert.Equal(t, map[string]string{"a": "x"}, got[1].Extra)
}

type phone struct {
	Kind   string `cell:"Type"`
	Number string `cell:"Number"`
}

type span struct {
	From int `cell:"#0"`
	To   int `cell:"#1"`
}

type contact struct {
	Name   string  `cell:"#0"`
	Period span    `cell:",range,start=1,end=2"`
	Phones []phone `cell:",list,start=3,end=8"`
	Notes  string  `cell:"Notes"`
}

func TestNestedLayout(t *testing.T) {
	records := []contact{
		{Name: "Ada", Period: span{From: 1, To: 2}, Phones: []phone{{"home", "1"}, {"work", "2"}}},
		{Name: "Bob", Phones: []phone{{"cell", "3"}}, Notes: "vip"},
	}

	var buf bytes.Buffer
	w, err := NewCSV[contact](&buf, nil)
	require.NoError(t, err)

	var paths []string
	for _, c := range w.Columns(records) {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{
		"Name", "Period.From", "Period.To",
		"Phones[0].Kind", "Phones[0].Number", "Phones[1].Kind", "Phones[1].Number",
		"Notes",
	}, paths)

	require.NoError(t, w.Write(records))
	assert.Equal(t, "Name,From,To,Type,Number,Type,Number,Notes\n"+
		"Ada,1,2,home,1,work,2,\n"+
		"Bob,0,0,cell,3,,,vip\n", buf.String())

	src, err := csvsource.NewCSVSource(strings.NewReader(buf.String()), config.NewOptions())
	require.NoError(t, err)
	r, err := bind.NewReader[contact](nil)
	require.NoError(t, err)
	got, err := r.ReadAll(context.Background(), core.Push(src))
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSchema(t *testing.T) {
	w, err := New[member](nil, nil)
	require.NoError(t, err)

	s := w.Schema(members)
	assert.Equal(t, "member", s.Name)
	require.Len(t, s.Fields, 6)
	assert.Equal(t, core.Field{Name: "ID", Path: "ID", Column: 0, Type: core.FieldTypeInt}, s.Fields[0])
	assert.Equal(t, core.FieldTypeDate, s.Fields[3].Type)
	assert.Equal(t, core.Field{Name: "a", Path: "Extra[a]", Column: 4, Type: core.FieldTypeString, Nullable: true}, s.Fields[4])
}

func TestWriteXLSX(t *testing.T) {
	opts := config.NewOptions()
	opts.SheetName = "Members"

	var buf bytes.Buffer
	w, err := NewXLSX[member](&buf, opts)
	require.NoError(t, err)
	require.NoError(t, w.Write(members))
	require.NoError(t, w.Close())

	src, err := xlsxsource.NewXLSXSource(&buf, opts)
	require.NoError(t, err)
	defer src.Close()

	r, err := bind.NewReader[member](opts, bind.WithSheet("Members"))
	require.NoError(t, err)
	got, err := r.ReadAll(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob, Jr", got[1].Name)
	assert.Equal(t, members[1].Born, got[1].Born)
}

func TestHeaderless(t *testing.T) {
	opts := config.NewOptions()
	opts.HeaderCount = 0

	var buf bytes.Buffer
	w, err := NewCSV[span](&buf, opts)
	require.NoError(t, err)
	require.NoError(t, w.Write([]span{{1, 2}}))
	assert.Equal(t, "1,2\n", buf.String())
}

func TestLayoutWithoutRecords(t *testing.T) {
	decl, err := binding.NewRegistry().Declaration(reflect.TypeOf(contact{}))
	require.NoError(t, err)

	cols := Layout(decl, nil)
	require.Len(t, cols, 4)
	assert.Equal(t, "Notes", cols[3].Header)
	assert.Equal(t, 3, cols[3].Index)
}

func TestRejectsNonStruct(t *testing.T) {
	_, err := New[int](nil, nil)
	assert.Error(t, err)
}
