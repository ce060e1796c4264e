// Package types provides core data types for the datadex index.
package types

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the runtime type of a Value.
type Kind int

const (
	// KindNull is the null sentinel for schema columns absent from a
	// parameter block.
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindText:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// Value is a loosely-typed scalar parameter value: integer, float, text,
// or the null sentinel.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
}

// Null returns the null sentinel value.
func Null() Value {
	return Value{Kind: KindNull}
}

// IntValue returns an integer Value.
func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

// FloatValue returns a float Value.
func FloatValue(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

// TextValue returns a textual Value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

var (
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
)

// ParseValue converts raw parameter text into a typed Value using an
// ordered set of literal matchers: integer first, then float, then
// fallback text. The input is trimmed before matching.
func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	if intPattern.MatchString(raw) {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return IntValue(v)
		}
	}
	if floatPattern.MatchString(raw) {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return FloatValue(v)
		}
	}
	return TextValue(raw)
}

// IsNull reports whether the value is the null sentinel.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Numeric returns the value as a float64 and true when the value is an
// integer or a float.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Equal reports value equality. Integers and floats compare numerically
// across kinds; text compares exactly; null equals nothing, not even null.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return false
	}
	if vn, ok := v.Numeric(); ok {
		on, ook := o.Numeric()
		return ook && vn == on
	}
	return o.Kind == KindText && v.Text == o.Text
}

// String renders the value for display and query diagnostics.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}

// ParameterSet maps parameter names to their values, one per logical
// block of a parameter descriptor file. Keys are free-form as authored.
type ParameterSet map[string]Value
