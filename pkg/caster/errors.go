package caster

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// ErrCollectDisabled is returned by Errors when the pass was not configured
// to accumulate cast failures.
var ErrCollectDisabled = errors.New(errors.ErrorTypeConfig, "cast error collection is disabled, enable collect_errors")

// Location identifies the cell a value came from.
type Location struct {
	Sheet    string
	Row      int
	Col      int
	Property string
}

// CastError records one failed conversion. It never aborts a pass; the
// destination receives Default instead.
type CastError struct {
	Value    string
	Type     reflect.Type
	Property string
	Sheet    string
	Row      int
	Col      int
	Default  interface{}
	Cause    error
}

// Label is the key used in per-row error sinks: the property name when the
// binding has one, otherwise the bracketed column index.
func (e *CastError) Label() string {
	if e.Property != "" {
		return e.Property
	}
	return fmt.Sprintf("[%d]", e.Col)
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast %q to %s for %s at row %d: %v", e.Value, e.Type, e.Label(), e.Row, e.Cause)
}

func (e *CastError) Unwrap() error {
	return e.Cause
}

// CastErrors groups the element failures of a single list or set cell.
type CastErrors []*CastError

func (es CastErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (es CastErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
