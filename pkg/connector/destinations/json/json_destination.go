// Package json writes rows of cell text as JSON lines.
//
// When the options declare header rows, the first row written is taken as
// the header and every later row becomes an object keyed by header text.
// Columns without header text, or all columns when there is no header, are
// keyed by their zero-based index. Later columns win over earlier ones that
// share a header.
package json

import (
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/json"
)

// JSONDestination writes one JSON object per data row.
type JSONDestination struct {
	enc        *json.LinesEncoder
	wantHeader bool
	header     []string
	closers    []io.Closer
	logger     *zap.Logger
}

// NewJSONDestination writes to w. The caller keeps ownership of w.
func NewJSONDestination(w io.Writer, opts *config.Options) (*JSONDestination, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &JSONDestination{
		enc:        json.NewLinesEncoder(w),
		wantHeader: opts.HeaderCount > 0,
		logger:     zap.NewNop(),
	}, nil
}

// Create creates the file at path, compressing it when the extension asks
// for it.
func Create(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to create JSON file")
	}
	alg := compression.FromExtension(path)
	cw, err := compression.NewWriter(file, alg, compression.Default)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	d, err := NewJSONDestination(cw, opts)
	if err != nil {
		_ = cw.Close()
		_ = file.Close()
		return nil, err
	}
	d.closers = []io.Closer{cw, file}
	if logger != nil {
		d.logger = logger
	}
	d.logger.Info("JSON destination created",
		zap.String("file", path),
		zap.String("compression", string(alg)))
	return d, nil
}

// WriteRow implements core.Destination.
func (d *JSONDestination) WriteRow(cells []string) error {
	if d.enc == nil {
		return errors.New(errors.ErrorTypeSource, "JSON destination is closed")
	}
	if d.wantHeader {
		d.header = append([]string(nil), cells...)
		d.wantHeader = false
		return nil
	}

	obj := make(map[string]string, len(cells))
	for i, text := range cells {
		obj[d.key(i)] = text
	}
	if err := d.enc.Encode(obj); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode JSON row")
	}
	return nil
}

func (d *JSONDestination) key(col int) string {
	if col < len(d.header) && d.header[col] != "" {
		return d.header[col]
	}
	return strconv.Itoa(col)
}

// Flush implements core.Destination.
func (d *JSONDestination) Flush() error {
	if d.enc == nil {
		return nil
	}
	if err := d.enc.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to flush JSON rows")
	}
	return nil
}

// Rows returns the number of objects written.
func (d *JSONDestination) Rows() int {
	if d.enc == nil {
		return 0
	}
	return d.enc.Count()
}

// Close flushes and releases the file opened by Create.
func (d *JSONDestination) Close() error {
	if d.enc == nil {
		return nil
	}
	rows := d.enc.Count()
	err := d.enc.Close()
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeSource, "failed to flush JSON rows")
	}
	d.enc = nil
	for _, c := range d.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeSource, "failed to close JSON file")
		}
	}
	d.closers = nil
	d.logger.Debug("JSON destination closed", zap.Int("rows", rows))
	return err
}
