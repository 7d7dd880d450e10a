// Package mmap maps input files into memory for read-only access.
package mmap

import (
	"bytes"
	"os"
	"sync"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Reader is a read-only memory mapping of a file. The mapped bytes stay
// valid until Close.
type Reader struct {
	file *os.File
	data []byte
	once sync.Once
	err  error
}

// Open maps the file at path. Empty files map to an empty Reader.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to open file")
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to stat file")
	}
	if !stat.Mode().IsRegular() {
		_ = file.Close()
		return nil, errors.Newf(errors.ErrorTypeSource, "%s is not a regular file", path)
	}

	r := &Reader{file: file}
	if size := stat.Size(); size > 0 {
		r.data, err = mapFile(file.Fd(), int(size))
		if err != nil {
			_ = file.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to map file")
		}
	}
	return r, nil
}

// Bytes returns the mapped contents.
func (r *Reader) Bytes() []byte { return r.data }

// Len returns the size of the mapping.
func (r *Reader) Len() int { return len(r.data) }

// NewReader returns an io.Reader over the mapped contents.
func (r *Reader) NewReader() *bytes.Reader { return bytes.NewReader(r.data) }

// Close unmaps the file and closes it. Later calls return the first result.
func (r *Reader) Close() error {
	r.once.Do(func() {
		if r.data != nil {
			if err := unmapFile(r.data); err != nil {
				r.err = errors.Wrap(err, errors.ErrorTypeSource, "failed to unmap file")
			}
			r.data = nil
		}
		if err := r.file.Close(); err != nil && r.err == nil {
			r.err = errors.Wrap(err, errors.ErrorTypeSource, "failed to close file")
		}
	})
	return r.err
}
