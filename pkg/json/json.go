// Package json encodes records as JSON with goccy/go-json, pooling the
// buffers used for line-delimited output.
package json

import (
	"bufio"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

const bufferSize = 64 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bufio.NewWriterSize(io.Discard, bufferSize)
	},
}

// Marshal is json.Marshal backed by goccy/go-json.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is json.Unmarshal backed by goccy/go-json.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// LinesEncoder writes one JSON document per line. HTML characters are not
// escaped. Call Close to flush and release the buffer.
type LinesEncoder struct {
	buf   *bufio.Writer
	enc   *gojson.Encoder
	count int
}

// NewLinesEncoder creates an encoder writing to w.
func NewLinesEncoder(w io.Writer) *LinesEncoder {
	buf := bufferPool.Get().(*bufio.Writer)
	buf.Reset(w)
	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &LinesEncoder{buf: buf, enc: enc}
}

// Encode writes v followed by a newline.
func (e *LinesEncoder) Encode(v interface{}) error {
	if err := e.enc.Encode(v); err != nil {
		return err
	}
	e.count++
	return nil
}

// Count returns the number of documents written.
func (e *LinesEncoder) Count() int { return e.count }

// Flush writes buffered lines to the underlying writer.
func (e *LinesEncoder) Flush() error {
	return e.buf.Flush()
}

// Close flushes and returns the buffer to the pool. The encoder must not be
// used afterwards.
func (e *LinesEncoder) Close() error {
	if e.buf == nil {
		return nil
	}
	err := e.buf.Flush()
	e.buf.Reset(io.Discard)
	bufferPool.Put(e.buf)
	e.buf = nil
	return err
}
