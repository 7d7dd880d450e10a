// Package csvline splits delimited text lines into fields and classifies
// rows into header, skipped and data rows.
//
// The tokenizer works on one physical line at a time; quoted fields cannot
// span lines.
package csvline

import "strings"

type state int

const (
	stateBegin state = iota
	stateMiddle
	stateQuote
)

// Split tokenizes a single line. A quote at the start of a field opens a
// quoted section in which delimiters are literal; a quote inside the
// section tentatively closes it, and a second consecutive quote emits one
// literal quote. A trailing field is kept only when non-empty.
func Split(line string, delim rune) []string {
	var (
		fields []string
		word   strings.Builder
		st     = stateBegin
	)

	for _, r := range line {
		switch {
		case st == stateBegin && word.Len() == 0 && r == '"':
			st = stateMiddle
		case (st == stateMiddle || (st == stateBegin && word.Len() > 0)) && r == '"':
			st = stateQuote
		case st == stateQuote && r == '"':
			st = stateBegin
			word.WriteByte('"')
		case (st == stateQuote || st == stateBegin) && r == delim:
			fields = append(fields, word.String())
			word.Reset()
			st = stateBegin
		default:
			word.WriteRune(r)
		}
	}

	if word.Len() > 0 {
		fields = append(fields, word.String())
	}
	return fields
}

// Unwrap strips one pair of surrounding quotes from a whole-field value.
func Unwrap(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}

// Fields splits line and unwraps every field.
func Fields(line string, delim rune) []string {
	fields := Split(line, delim)
	for i, f := range fields {
		fields[i] = Unwrap(f)
	}
	return fields
}
