// Package errors provides examples of structured error handling in cellbind.
package errors_test

import (
	"fmt"
	"io"

	stderrors "errors"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "field delimiter must be a single character")

	err = err.WithDetail("option", "field_delimiter").
		WithDetail("value", ";;")

	fmt.Println(err.Error())

	// Output:
	// config: field delimiter must be a single character
}

// ExampleWrap shows how to wrap a source failure with context.
func ExampleWrap() {
	originalErr := io.ErrUnexpectedEOF

	err := errors.Wrap(originalErr, errors.ErrorTypeSource, "failed to read CSV line").
		WithDetail("line", 42)

	if errors.IsType(err, errors.ErrorTypeSource) {
		fmt.Println("This is a source error")
	}

	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Original error was unexpected EOF")
	}

	// Output:
	// This is a source error
	// Original error was unexpected EOF
}

// ExampleNewHeaderMissing shows how callers recover the missing header names.
func ExampleNewHeaderMissing() {
	err := errors.NewHeaderMissing([]string{"Surname", "Age"})

	fmt.Println(err)
	fmt.Println(errors.MissingHeaders(err))

	// Output:
	// header_missing: some headers are missing in the sheet: [Age Surname]
	// [Age Surname]
}
