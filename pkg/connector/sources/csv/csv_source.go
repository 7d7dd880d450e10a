package csv

import (
	"bufio"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/csvline"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/mmap"
)

const bufferSize = 64 * 1024

// CSVSource reads delimited text line by line. A leading byte order mark is
// dropped and empty lines are skipped without consuming a row index.
type CSVSource struct {
	reader *bufio.Reader
	closer io.Closer
	delim  rune
	row    int
	eof    bool
	logger *zap.Logger
}

// NewCSVSource creates a source over r. The caller keeps ownership of r.
func NewCSVSource(r io.Reader, opts *config.Options) (core.Source, error) {
	return newCSVSource(r, nil, opts)
}

func newCSVSource(r io.Reader, closer io.Closer, opts *config.Options) (*CSVSource, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	return &CSVSource{
		reader: bufio.NewReaderSize(decoded, bufferSize),
		closer: closer,
		delim:  opts.Delimiter(),
		logger: zap.NewNop(),
	}, nil
}

// Open maps the CSV file at path into memory, decoding it when compressed.
func Open(path string, opts *config.Options, logger *zap.Logger) (*CSVSource, error) {
	file, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to open CSV file")
	}
	rc, alg, err := compression.NewReader(file.NewReader())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	s, err := newCSVSource(rc, multiCloser{rc, file}, opts)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if logger != nil {
		s.logger = logger
	}
	s.logger.Info("CSV source opened",
		zap.String("file", path),
		zap.String("compression", string(alg)),
		zap.String("delimiter", string(s.delim)))
	return s, nil
}

// Next implements core.Source.
func (s *CSVSource) Next(ctx context.Context) (core.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return core.Row{}, err
		}
		if s.eof {
			return core.Row{}, io.EOF
		}

		line, err := s.reader.ReadString('\n')
		if err == io.EOF {
			s.eof = true
		} else if err != nil {
			return core.Row{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to read CSV line")
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		row := core.Row{Index: s.row, Cells: csvline.Fields(line, s.delim)}
		s.row++
		return row, nil
	}
}

// Scan implements core.CellSource.
func (s *CSVSource) Scan(ctx context.Context, h core.CellHandler) error {
	return core.Push(s).Scan(ctx, h)
}

// Close releases the file opened by Open.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
