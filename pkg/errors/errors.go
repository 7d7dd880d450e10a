// Package errors provides structured error handling for cellbind.
//
// Errors produced here form the fatal tier: configuration problems, missing
// mandatory headers, unusable constructors and source failures. Per-cell
// conversion failures are never reported through this package; see
// package caster.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal engine errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents invalid options or binding declarations
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeHeaderMissing represents mandatory headers absent from the input
	ErrorTypeHeaderMissing ErrorType = "header_missing"
	// ErrorTypeConstructor represents constructor selection or invocation failures
	ErrorTypeConstructor ErrorType = "constructor"
	// ErrorTypeSource represents failures reading the underlying row source
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeData represents malformed input that cannot be tokenized
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability represents unsupported destination types or features
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeCanceled represents a pass stopped by its consumer or context
	ErrorTypeCanceled ErrorType = "canceled"
)

// DetailMissing is the detail key holding the names of missing headers.
const DetailMissing = "missing"

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// NewHeaderMissing reports mandatory bindings whose headers were not found.
// The names are sorted and attached under DetailMissing.
func NewHeaderMissing(names []string) *Error {
	missing := append([]string(nil), names...)
	sort.Strings(missing)
	e := &Error{
		Type:    ErrorTypeHeaderMissing,
		Message: fmt.Sprintf("some headers are missing in the sheet: %v", missing),
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailMissing, missing)
}

// MissingHeaders returns the header names carried by a header-missing error,
// or nil when err is not one.
func MissingHeaders(err error) []string {
	var e *Error
	if !errors.As(err, &e) || e.Type != ErrorTypeHeaderMissing {
		return nil
	}
	names, _ := e.Details[DetailMissing].([]string)
	return names
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsFatal reports whether err belongs to the fatal tier.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
