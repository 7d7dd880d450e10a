// Package csv writes rows of cell text as delimited text.
//
// # Features
//
//   - Configurable field delimiter
//   - Quoting of fields holding delimiters, quotes or line breaks
//   - Optional compression picked from the file extension (gzip, zstd, lz4, s2)
//
// # Example Usage
//
//	dest, err := csv.Create("out.csv.gz", opts, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dest.Close()
//
//	err = dest.WriteRow([]string{"id", "name"})
package csv

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

const bufferSize = 64 * 1024

// CSVDestination writes delimited rows.
type CSVDestination struct {
	writer  *csv.Writer
	buf     *bufio.Writer
	closers []io.Closer
	rows    int
	logger  *zap.Logger
}

// NewCSVDestination writes to w. The caller keeps ownership of w.
func NewCSVDestination(w io.Writer, opts *config.Options) (*CSVDestination, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(w, bufferSize)
	writer := csv.NewWriter(buf)
	writer.Comma = opts.Delimiter()
	return &CSVDestination{writer: writer, buf: buf, logger: zap.NewNop()}, nil
}

// Create creates the file at path, compressing it when the extension asks
// for it.
func Create(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to create CSV file")
	}
	alg := compression.FromExtension(path)
	cw, err := compression.NewWriter(file, alg, compression.Default)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	d, err := NewCSVDestination(cw, opts)
	if err != nil {
		_ = cw.Close()
		_ = file.Close()
		return nil, err
	}
	d.closers = []io.Closer{cw, file}
	if logger != nil {
		d.logger = logger
	}
	d.logger.Info("CSV destination created",
		zap.String("file", path),
		zap.String("compression", string(alg)))
	return d, nil
}

// WriteRow implements core.Destination.
func (d *CSVDestination) WriteRow(cells []string) error {
	if err := d.writer.Write(cells); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to write CSV row")
	}
	d.rows++
	return nil
}

// Flush implements core.Destination.
func (d *CSVDestination) Flush() error {
	d.writer.Flush()
	if err := d.writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to flush CSV rows")
	}
	if err := d.buf.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to flush CSV rows")
	}
	return nil
}

// Rows returns the number of rows written.
func (d *CSVDestination) Rows() int { return d.rows }

// Close flushes and releases the file opened by Create.
func (d *CSVDestination) Close() error {
	err := d.Flush()
	for _, c := range d.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeSource, "failed to close CSV file")
		}
	}
	d.closers = nil
	d.logger.Debug("CSV destination closed", zap.Int("rows", d.rows))
	return err
}
