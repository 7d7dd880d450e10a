// Package xlsx writes rows of cell text into an Excel worksheet.
package xlsx

import (
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

const defaultSheet = "Sheet1"

// XLSXDestination streams rows into a single worksheet. The workbook is
// written out on Close.
type XLSXDestination struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	sheet  string
	row    int

	out    io.Writer
	path   string
	logger *zap.Logger
}

// NewXLSXDestination creates a workbook that is written to w on Close.
func NewXLSXDestination(w io.Writer, opts *config.Options) (*XLSXDestination, error) {
	d, err := newXLSXDestination(opts)
	if err != nil {
		return nil, err
	}
	d.out = w
	return d, nil
}

// Create creates a workbook saved to path on Close.
func Create(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
	d, err := newXLSXDestination(opts)
	if err != nil {
		return nil, err
	}
	d.path = path
	if logger != nil {
		d.logger = logger
	}
	d.logger.Info("XLSX destination created", zap.String("file", path), zap.String("sheet", d.sheet))
	return d, nil
}

func newXLSXDestination(opts *config.Options) (*XLSXDestination, error) {
	f := excelize.NewFile()
	sheet := defaultSheet
	if opts.SheetName != "" && opts.SheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, opts.SheetName); err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid sheet name")
		}
		sheet = opts.SheetName
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to open sheet stream")
	}
	return &XLSXDestination{file: f, stream: stream, sheet: sheet, logger: zap.NewNop()}, nil
}

// WriteRow implements core.Destination.
func (d *XLSXDestination) WriteRow(cells []string) error {
	d.row++
	cell, err := excelize.CoordinatesToCellName(1, d.row)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "row out of range")
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := d.stream.SetRow(cell, values); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to write XLSX row")
	}
	return nil
}

// Flush implements core.Destination. Rows are held by the stream writer
// until Close, so Flush has nothing to do.
func (d *XLSXDestination) Flush() error { return nil }

// Rows returns the number of rows written.
func (d *XLSXDestination) Rows() int { return d.row }

// Close finishes the sheet and writes the workbook.
func (d *XLSXDestination) Close() error {
	defer d.file.Close()

	if err := d.stream.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to flush XLSX sheet")
	}
	switch {
	case d.path != "":
		if err := d.file.SaveAs(d.path); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSource, "failed to save XLSX workbook")
		}
	case d.out != nil:
		if _, err := d.file.WriteTo(d.out); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSource, "failed to write XLSX workbook")
		}
	}
	d.logger.Debug("XLSX destination closed", zap.Int("rows", d.row))
	return nil
}
