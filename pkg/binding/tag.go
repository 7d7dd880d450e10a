package binding

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// TagName is the struct tag key read by the registry.
const TagName = "cell"

const defaultAltDelimiter = "|"

type tagSpec struct {
	names     []string
	column    int
	kind      Kind
	order     int
	mandatory bool
	start     int
	end       int
	stride    int
	readOnly  bool
	writeOnly bool
}

func parseTag(field, tag string) (tagSpec, error) {
	ts := tagSpec{column: -1, kind: -1, order: -1, end: Unbounded}

	parts := strings.Split(tag, ",")
	head := strings.TrimSpace(parts[0])
	altDelim := defaultAltDelimiter

	setKind := func(k Kind) error {
		if ts.kind != -1 {
			return errors.Newf(errors.ErrorTypeConfig, "field %s: tag %q combines %s and %s", field, tag, ts.kind, k)
		}
		ts.kind = k
		return nil
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, value, hasValue := strings.Cut(opt, "=")
		var err error
		switch key {
		case "":
		case "mandatory":
			ts.mandatory = true
		case "readonly":
			ts.readOnly = true
		case "writeonly":
			ts.writeOnly = true
		case "row":
			err = setKind(KindRow)
		case "unknown":
			err = setKind(KindUnknown)
		case "errors":
			err = setKind(KindErrors)
		case "range":
			err = setKind(KindRange)
		case "list":
			err = setKind(KindList)
		case "delim":
			if value == "" {
				err = errors.Newf(errors.ErrorTypeConfig, "field %s: empty delim", field)
			}
			altDelim = value
		case "order", "start", "end", "stride":
			var n int
			n, err = strconv.Atoi(value)
			if !hasValue || err != nil || n < 0 {
				return ts, errors.Newf(errors.ErrorTypeConfig, "field %s: %s needs a non-negative integer, got %q", field, key, value)
			}
			switch key {
			case "order":
				ts.order = n
			case "start":
				ts.start = n
			case "end":
				ts.end = n
			case "stride":
				ts.stride = n
			}
		default:
			err = errors.Newf(errors.ErrorTypeConfig, "field %s: unknown tag option %q", field, key)
		}
		if err != nil {
			return ts, err
		}
	}

	if strings.HasPrefix(head, "#") {
		col, err := strconv.Atoi(head[1:])
		if err != nil || col < 0 {
			return ts, errors.Newf(errors.ErrorTypeConfig, "field %s: invalid column %q", field, head)
		}
		if err := setKind(KindIndex); err != nil {
			return ts, err
		}
		ts.column = col
		return ts, nil
	}

	for _, name := range strings.Split(head, altDelim) {
		if name = strings.TrimSpace(name); name != "" {
			ts.names = append(ts.names, name)
		}
	}

	if ts.kind == -1 {
		if len(ts.names) == 0 {
			return ts, errors.Newf(errors.ErrorTypeConfig, "field %s: tag %q names no column", field, tag)
		}
		ts.kind = KindName
	}
	return ts, nil
}
