package xlsx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
)

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1, "Ada"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{3, "", "extra"}))

	_, err := f.NewSheet("Secret")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Secret", "A1", "hidden"))
	require.NoError(t, f.SetSheetVisible("Secret", false))

	_, err = f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "other"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestRowsKeepWorksheetIndexes(t *testing.T) {
	src, err := NewXLSXSource(workbook(t), config.NewOptions())
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, "Sheet1", src.SheetName())
	assert.Equal(t, []string{"Sheet1", "Secret", "Other"}, src.SheetNames())

	var rows []core.Row
	for {
		row, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "name"}, rows[0].Cells)
	assert.Equal(t, []string{"1", "Ada"}, rows[1].Cells)
	assert.Empty(t, rows[2].Cells)
	assert.Equal(t, 3, rows[3].Index)
	assert.Equal(t, []string{"3", "", "extra"}, rows[3].Cells)
}

func TestSheetSelection(t *testing.T) {
	buf := workbook(t).Bytes()

	opts := config.NewOptions()
	opts.SheetIndex = 1
	src, err := NewXLSXSource(bytes.NewReader(buf), opts)
	require.NoError(t, err)
	assert.Equal(t, "Secret", src.SheetName())
	require.NoError(t, src.Close())

	opts.IgnoreHiddenSheets = true
	src, err = NewXLSXSource(bytes.NewReader(buf), opts)
	require.NoError(t, err)
	assert.Equal(t, "Other", src.SheetName())
	require.NoError(t, src.Close())

	opts = config.NewOptions()
	opts.SheetName = "Other"
	src, err = NewXLSXSource(bytes.NewReader(buf), opts)
	require.NoError(t, err)
	assert.Equal(t, "Other", src.SheetName())
	require.NoError(t, src.Close())

	opts.SheetName = "Missing"
	_, err = NewXLSXSource(bytes.NewReader(buf), opts)
	assert.Error(t, err)

	opts = config.NewOptions()
	opts.SheetIndex = 5
	_, err = NewXLSXSource(bytes.NewReader(buf), opts)
	assert.Error(t, err)
}

type cells struct {
	got    map[int][]string
	starts []int
	ended  bool
}

func (c *cells) StartRow(ctx context.Context, row int) error {
	c.starts = append(c.starts, row)
	return nil
}
func (c *cells) Cell(row, col int, text string) error {
	c.got[row] = append(c.got[row], text)
	return nil
}
func (c *cells) EndRow(row int) error { return nil }
func (c *cells) EndStream(err error)  { c.ended = true }

func TestScanPushesOnlyFilledCells(t *testing.T) {
	src, err := NewXLSXSource(workbook(t), config.NewOptions())
	require.NoError(t, err)
	defer src.Close()

	h := &cells{got: make(map[int][]string)}
	require.NoError(t, src.Scan(context.Background(), h))

	assert.Equal(t, []int{0, 1, 2, 3}, h.starts)
	assert.Equal(t, []string{"3", "extra"}, h.got[3])
	assert.NotContains(t, h.got, 2)
	assert.True(t, h.ended)
}

func TestTransposedSheet(t *testing.T) {
	opts := config.NewOptions()
	opts.Transposed = true
	src, err := NewXLSXSource(workbook(t), opts)
	require.NoError(t, err)
	defer src.Close()

	var rows []core.Row
	for {
		row, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}

	require.Len(t, rows, 3)
	assert.Equal(t, core.Row{Index: 0, Cells: []string{"id", "1", "", "3"}}, rows[0])
	assert.Equal(t, core.Row{Index: 1, Cells: []string{"name", "Ada"}}, rows[1])
	assert.Equal(t, core.Row{Index: 2, Cells: []string{"", "", "", "extra"}}, rows[2])
}

func TestTranspose(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "c"}, {"b"}}, transpose([][]string{{"a", "b"}, {"c"}}))
	assert.Empty(t, transpose(nil))
}
