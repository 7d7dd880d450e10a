package caster

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// numberFormat holds the separators a locale uses for numerals.
type numberFormat struct {
	group   rune
	decimal rune
}

var (
	commaDot = numberFormat{group: ',', decimal: '.'}

	formats sync.Map // tag string -> numberFormat
)

// sample is formatted per locale to read back its CLDR separators.
const sample = 1234567.5

func formatFor(tag language.Tag) numberFormat {
	key := tag.String()
	if f, ok := formats.Load(key); ok {
		return f.(numberFormat)
	}

	var marks []rune
	for _, r := range message.NewPrinter(tag).Sprint(number.Decimal(sample)) {
		if !unicode.IsDigit(r) {
			marks = append(marks, r)
		}
	}

	f := commaDot
	switch len(marks) {
	case 0:
	case 1:
		f = numberFormat{decimal: marks[0]}
	default:
		f = numberFormat{group: marks[0], decimal: marks[len(marks)-1]}
	}
	actual, _ := formats.LoadOrStore(key, f)
	return actual.(numberFormat)
}

// isGroup accepts the locale's group mark. Space marks match any space and
// the typographic apostrophe matches the ASCII one.
func (f numberFormat) isGroup(r rune) bool {
	switch {
	case f.group == 0:
		return false
	case r == f.group:
		return true
	case unicode.IsSpace(f.group):
		return unicode.IsSpace(r)
	case f.group == '\u2019':
		return r == '\''
	}
	return false
}

// normalize rewrites locale-formatted text into the form strconv accepts:
// group separators dropped, the decimal mark replaced by '.'.
func (f numberFormat) normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty number")
	}

	var b strings.Builder
	b.Grow(len(s))
	seenDecimal := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		case r == f.decimal && !seenDecimal:
			b.WriteByte('.')
			seenDecimal = true
		case f.isGroup(r) && !seenDecimal:
		default:
			return "", fmt.Errorf("unexpected character %q in number %q", r, raw)
		}
	}
	return b.String(), nil
}

// integral drops the fractional part of a normalized number. Integral
// destinations truncate, they never round.
func integral(s string) (string, error) {
	whole, frac, found := strings.Cut(s, ".")
	if strings.ContainsAny(s, "eE") {
		return "", fmt.Errorf("exponent not allowed for integers: %q", s)
	}
	if found {
		for _, r := range frac {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid fraction in %q", s)
			}
		}
	}
	switch whole {
	case "", "-", "+":
		if !found || frac == "" {
			return "", fmt.Errorf("no digits in %q", s)
		}
		return "0", nil
	}
	return whole, nil
}
