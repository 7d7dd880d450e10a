package csv

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
)

func readAll(t *testing.T, src core.Source) []core.Row {
	t.Helper()
	var rows []core.Row
	for {
		row, err := src.Next(context.Background())
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVSourceRows(t *testing.T) {
	input := "\ufeffid,name\r\n\r\n1,\"Smith, J\"\n2,\"say \"\"hi\"\"\"\n\n3,last"
	src, err := NewCSVSource(strings.NewReader(input), config.NewOptions())
	require.NoError(t, err)

	rows := readAll(t, src)
	require.Len(t, rows, 4)
	assert.Equal(t, core.Row{Index: 0, Cells: []string{"id", "name"}}, rows[0])
	assert.Equal(t, []string{"1", "Smith, J"}, rows[1].Cells)
	assert.Equal(t, []string{"2", `say "hi"`}, rows[2].Cells)
	assert.Equal(t, core.Row{Index: 3, Cells: []string{"3", "last"}}, rows[3])
}

func TestCSVSourceDelimiter(t *testing.T) {
	opts := config.NewOptions()
	opts.FieldDelimiter = ";"
	src, err := NewCSVSource(strings.NewReader("a;b,c;d\n"), opts)
	require.NoError(t, err)
	rows := readAll(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b,c", "d"}, rows[0].Cells)
}

func TestCSVSourceRejectsBadOptions(t *testing.T) {
	opts := config.NewOptions()
	opts.FieldDelimiter = "::"
	_, err := NewCSVSource(strings.NewReader(""), opts)
	assert.Error(t, err)
}

func TestOpenCompressedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := compression.NewWriter(f, compression.Gzip, compression.Default)
	require.NoError(t, err)
	_, err = io.WriteString(w, "id\n1\n2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	src, err := Open(path, config.NewOptions(), nil)
	require.NoError(t, err)
	defer src.Close()

	rows := readAll(t, src)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2"}, rows[2].Cells)
}

type recorder struct {
	cells []string
	ended bool
	err   error
}

func (r *recorder) StartRow(ctx context.Context, row int) error { return nil }
func (r *recorder) Cell(row, col int, text string) error {
	r.cells = append(r.cells, text)
	if text == "stop" {
		return core.ErrStop
	}
	return nil
}
func (r *recorder) EndRow(row int) error { return nil }
func (r *recorder) EndStream(err error)  { r.ended, r.err = true, err }

func TestCSVSourceScan(t *testing.T) {
	src, err := newCSVSource(strings.NewReader("a,b\nstop,c\nd\n"), nil, config.NewOptions())
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, src.Scan(context.Background(), rec))
	assert.Equal(t, []string{"a", "b", "stop"}, rec.cells)
	assert.True(t, rec.ended)
	assert.NoError(t, rec.err)
}
