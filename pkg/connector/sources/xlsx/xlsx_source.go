// Package xlsx reads worksheet rows from Excel workbooks.
package xlsx

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// XLSXSource reads the rows of one worksheet. Cell text is the formatted
// value Excel would display.
type XLSXSource struct {
	file   *excelize.File
	sheet  string
	rows   *excelize.Rows
	row    int
	logger *zap.Logger

	// transposed sheets are read whole and served column by column
	transposed bool
	columns    [][]string
}

// NewXLSXSource opens the workbook in r and selects a sheet from opts.
func NewXLSXSource(r io.Reader, opts *config.Options) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to open XLSX workbook")
	}
	return newXLSXSource(f, opts)
}

// Open opens the workbook at path.
func Open(path string, opts *config.Options, logger *zap.Logger) (*XLSXSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to open XLSX workbook")
	}
	s, err := newXLSXSource(f, opts)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		s.logger = logger
	}
	s.logger.Info("XLSX source opened",
		zap.String("file", path),
		zap.String("sheet", s.sheet))
	return s, nil
}

func newXLSXSource(f *excelize.File, opts *config.Options) (*XLSXSource, error) {
	if err := opts.Validate(); err != nil {
		_ = f.Close()
		return nil, err
	}
	sheet, err := selectSheet(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &XLSXSource{file: f, sheet: sheet, logger: zap.NewNop(), transposed: opts.Transposed}, nil
}

// selectSheet picks SheetName when set, otherwise the SheetIndex-th sheet,
// counting only visible sheets when hidden ones are ignored.
func selectSheet(f *excelize.File, opts *config.Options) (string, error) {
	var candidates []string
	for _, name := range f.GetSheetList() {
		if opts.IgnoreHiddenSheets {
			if visible, err := f.GetSheetVisible(name); err == nil && !visible {
				continue
			}
		}
		candidates = append(candidates, name)
	}

	if opts.SheetName != "" {
		for _, name := range candidates {
			if name == opts.SheetName {
				return name, nil
			}
		}
		return "", errors.Newf(errors.ErrorTypeSource, "sheet %q not found", opts.SheetName)
	}
	if opts.SheetIndex >= len(candidates) {
		return "", errors.Newf(errors.ErrorTypeSource, "sheet index %d out of range, workbook has %d sheets", opts.SheetIndex, len(candidates))
	}
	return candidates[opts.SheetIndex], nil
}

// SheetName returns the selected sheet.
func (s *XLSXSource) SheetName() string { return s.sheet }

// SheetNames lists every sheet of the workbook.
func (s *XLSXSource) SheetNames() []string { return s.file.GetSheetList() }

// Next implements core.Source. Rows missing from the sheet come back empty
// so indexes match the worksheet.
func (s *XLSXSource) Next(ctx context.Context) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return core.Row{}, err
	}
	if s.transposed {
		return s.nextColumn()
	}
	if s.rows == nil {
		rows, err := s.file.Rows(s.sheet)
		if err != nil {
			return core.Row{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to open rows of sheet "+s.sheet)
		}
		s.rows = rows
	}

	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return core.Row{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to read sheet "+s.sheet)
		}
		return core.Row{}, io.EOF
	}
	cells, err := s.rows.Columns()
	if err != nil {
		return core.Row{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to read row of sheet "+s.sheet)
	}

	row := core.Row{Index: s.row, Cells: cells}
	s.row++
	return row, nil
}

// nextColumn serves the sheet's columns as rows: header names run down the
// first column and every further column is one record.
func (s *XLSXSource) nextColumn() (core.Row, error) {
	if s.columns == nil {
		rows, err := s.file.GetRows(s.sheet)
		if err != nil {
			return core.Row{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to read sheet "+s.sheet)
		}
		s.columns = transpose(rows)
	}
	if s.row >= len(s.columns) {
		return core.Row{}, io.EOF
	}
	row := core.Row{Index: s.row, Cells: s.columns[s.row]}
	s.row++
	return row, nil
}

// transpose swaps rows and columns. Trailing empty cells are dropped, as
// excelize does for rows.
func transpose(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, width)
	for c := range out {
		cells := make([]string, len(rows))
		last := 0
		for r, row := range rows {
			if c < len(row) {
				cells[r] = row[c]
				if row[c] != "" {
					last = r + 1
				}
			}
		}
		out[c] = cells[:last]
	}
	return out
}

// Scan implements core.CellSource. Only cells holding text are pushed,
// every row still gets its StartRow and EndRow.
func (s *XLSXSource) Scan(ctx context.Context, h core.CellHandler) (err error) {
	defer func() {
		if err == core.ErrStop {
			err = nil
		}
		h.EndStream(err)
	}()

	for {
		row, err := s.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.StartRow(ctx, row.Index); err != nil {
			return err
		}
		for col, text := range row.Cells {
			if text == "" {
				continue
			}
			if err := h.Cell(row.Index, col, text); err != nil {
				return err
			}
		}
		if err := h.EndRow(row.Index); err != nil {
			return err
		}
	}
}

// Close releases the workbook.
func (s *XLSXSource) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
	return s.file.Close()
}
