package bundle

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is the closed set of literal shapes a Brewfile option value can take.
// The six implementations below are the only ones; Serialize rejects anything
// else as an authoring error.
type Value interface {
	// value restricts the interface to the types defined in this package.
	value()
}

// Bool is a boolean option value, rendered as `true` or `false`.
type Bool bool

// Int is an integer option value, rendered as plain decimal text.
type Int int64

// Float is a floating-point option value, rendered as canonical decimal text
// without scientific notation.
type Float float64

// String is a string option value, rendered double-quoted with the contents
// passed through verbatim. Input is assumed pre-sanitized by the
// configuration front end; the Brewfile format requires no further escaping.
type String string

// List is an ordered sequence of values, rendered in `[v1, v2]` bracket form.
type List []Value

// Dict is an insertion-ordered mapping of bare-identifier keys to values,
// rendered in `{ k1: v1, k2: v2 }` brace form. A slice rather than a Go map
// so that key order is part of the value.
type Dict []Field

// Field is a single key/value entry of a Dict.
type Field struct {
	// Key is the bare identifier emitted before the colon. Never quoted.
	Key string

	// Value is the field value, serialized recursively.
	Value Value
}

func (Bool) value()   {}
func (Int) value()    {}
func (Float) value()  {}
func (String) value() {}
func (List) value()   {}
func (Dict) value()   {}

// Serialize renders a Value in Brewfile literal syntax. It is total over the
// closed Value set; a nil value or a Value implementation from outside this
// package is a fatal authoring error, not a runtime condition.
func Serialize(v Value) (string, error) {
	switch val := v.(type) {
	case Bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case Int:
		return strconv.FormatInt(int64(val), 10), nil
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64), nil
	case String:
		return `"` + string(val) + `"`, nil
	case List:
		elems := make([]string, len(val))
		for i, e := range val {
			s, err := Serialize(e)
			if err != nil {
				return "", err
			}
			elems[i] = s
		}
		return "[" + strings.Join(elems, ", ") + "]", nil
	case Dict:
		if len(val) == 0 {
			return "{}", nil
		}
		entries := make([]string, len(val))
		for i, f := range val {
			s, err := Serialize(f.Value)
			if err != nil {
				return "", err
			}
			entries[i] = f.Key + ": " + s
		}
		return "{ " + strings.Join(entries, ", ") + " }", nil
	case nil:
		return "", NewAuthoringError("cannot serialize nil option value", nil)
	default:
		return "", NewAuthoringError("option value has unsupported type", nil).
			WithDetail("type", fmt.Sprintf("%T", v))
	}
}
