package config

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Options controls a single resolution pass. The zero value is not usable;
// start from NewOptions and override what differs.
type Options struct {
	// Row layout

	// HeaderStart is the index of the first header row
	HeaderStart int `yaml:"header_start" json:"header_start" mapstructure:"header_start"`
	// HeaderCount is the number of header rows; 0 disables named bindings
	HeaderCount int `yaml:"header_count" json:"header_count" mapstructure:"header_count"`
	// Skip discards this many rows after the header block
	Skip int `yaml:"skip" json:"skip" mapstructure:"skip"`
	// Limit caps the number of records produced; 0 means unlimited
	Limit int `yaml:"limit" json:"limit" mapstructure:"limit"`

	// Casting

	// PreferNull yields nil for empty cells bound to nullable destinations
	PreferNull bool `yaml:"prefer_null" json:"prefer_null" mapstructure:"prefer_null"`
	// DatePattern is the Go layout used for date destinations
	DatePattern string `yaml:"date_pattern" json:"date_pattern" mapstructure:"date_pattern"`
	// DateTimePattern is the Go layout used for date-time destinations
	DateTimePattern string `yaml:"datetime_pattern" json:"datetime_pattern" mapstructure:"datetime_pattern"`
	// DateRegex, when set, must match date text before it is parsed
	DateRegex string `yaml:"date_regex" json:"date_regex" mapstructure:"date_regex"`
	// DateTimeRegex, when set, must match date-time text before it is parsed
	DateTimeRegex string `yaml:"datetime_regex" json:"datetime_regex" mapstructure:"datetime_regex"`
	// Locale is the BCP 47 tag selecting grouping and decimal separators
	Locale string `yaml:"locale" json:"locale" mapstructure:"locale"`
	// TrimCellValue trims surrounding whitespace before casting
	TrimCellValue bool `yaml:"trim_cell_value" json:"trim_cell_value" mapstructure:"trim_cell_value"`
	// ListDelimiter separates elements of list and set cells
	ListDelimiter string `yaml:"list_delimiter" json:"list_delimiter" mapstructure:"list_delimiter"`
	// CollectErrors accumulates every cast failure for later inspection
	CollectErrors bool `yaml:"collect_errors" json:"collect_errors" mapstructure:"collect_errors"`

	// Header matching

	CaseInsensitive      bool `yaml:"case_insensitive" json:"case_insensitive" mapstructure:"case_insensitive"`
	IgnoreWhitespaces    bool `yaml:"ignore_whitespaces" json:"ignore_whitespaces" mapstructure:"ignore_whitespaces"`
	NamedHeaderMandatory bool `yaml:"named_header_mandatory" json:"named_header_mandatory" mapstructure:"named_header_mandatory"`

	// Sources

	// FieldDelimiter is the single-character CSV field separator
	FieldDelimiter string `yaml:"field_delimiter" json:"field_delimiter" mapstructure:"field_delimiter"`
	// SheetName selects a spreadsheet sheet by name; it wins over SheetIndex
	SheetName string `yaml:"sheet_name" json:"sheet_name" mapstructure:"sheet_name"`
	// SheetIndex selects a spreadsheet sheet by position among visible sheets
	SheetIndex int `yaml:"sheet_index" json:"sheet_index" mapstructure:"sheet_index"`
	// IgnoreHiddenSheets excludes hidden sheets from SheetIndex selection
	IgnoreHiddenSheets bool `yaml:"ignore_hidden_sheets" json:"ignore_hidden_sheets" mapstructure:"ignore_hidden_sheets"`
	// Transposed reads a sheet with headers down the first column and one
	// record per column
	Transposed bool `yaml:"transposed" json:"transposed" mapstructure:"transposed"`

	// Engine

	// QueueCapacity bounds the streaming queue between producer and consumer
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity" mapstructure:"queue_capacity"`
	// StrictConstructors fails when a constructor parameter cannot be mapped
	StrictConstructors bool `yaml:"strict_constructors" json:"strict_constructors" mapstructure:"strict_constructors"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		HeaderStart:     0,
		HeaderCount:     1,
		DatePattern:     "02/1/2006",
		DateTimePattern: "02/1/2006 15:04:05",
		Locale:          "en-US",
		ListDelimiter:   ",",
		FieldDelimiter:  ",",
		QueueCapacity:   1000,
	}
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.HeaderStart < 0 {
		return errors.New(errors.ErrorTypeConfig, "header_start cannot be negative")
	}
	if o.HeaderCount < 0 {
		return errors.New(errors.ErrorTypeConfig, "header_count cannot be negative")
	}
	if o.Skip < 0 {
		return errors.New(errors.ErrorTypeConfig, "skip cannot be negative")
	}
	if o.Limit < 0 {
		return errors.New(errors.ErrorTypeConfig, "limit cannot be negative")
	}
	if o.SheetIndex < 0 {
		return errors.New(errors.ErrorTypeConfig, "sheet_index cannot be negative")
	}
	if o.QueueCapacity <= 0 {
		return errors.New(errors.ErrorTypeConfig, "queue_capacity must be positive")
	}
	if o.ListDelimiter == "" {
		return errors.New(errors.ErrorTypeConfig, "list_delimiter is required")
	}
	if o.DatePattern == "" || o.DateTimePattern == "" {
		return errors.New(errors.ErrorTypeConfig, "date_pattern and datetime_pattern are required")
	}

	if utf8.RuneCountInString(o.FieldDelimiter) != 1 {
		return errors.Newf(errors.ErrorTypeConfig, "field_delimiter must be a single character, got %q", o.FieldDelimiter)
	}
	switch d := o.Delimiter(); d {
	case '"', '\r', '\n', utf8.RuneError:
		return errors.Newf(errors.ErrorTypeConfig, "field_delimiter %q is not allowed", d)
	}

	for key, expr := range map[string]string{"date_regex": o.DateRegex, "datetime_regex": o.DateTimeRegex} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid %s", key))
		}
	}

	if _, err := language.Parse(o.Locale); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid locale %q", o.Locale))
	}

	return nil
}

// Delimiter returns the CSV field delimiter as a rune.
func (o *Options) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(o.FieldDelimiter)
	return r
}

// FirstDataRow is the index of the first row that can carry a record.
func (o *Options) FirstDataRow() int {
	return o.Skip + o.HeaderStart + o.HeaderCount
}

// IsHeaderRow reports whether row falls in the header block.
func (o *Options) IsHeaderRow(row int) bool {
	return row >= o.HeaderStart && row < o.HeaderStart+o.HeaderCount
}

// Clone returns a copy that can be modified independently.
func (o *Options) Clone() *Options {
	c := *o
	return &c
}
