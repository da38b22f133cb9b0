// Package format implements the typed value model and the format-string
// engine that turns a block's values into status-line text.
//
// A template is literal text interleaved with placeholders:
//
//	{name[:[0]min_width][^max_width][;[ ][_]min_prefix][*[_]unit][#bar_max]}
//
// Literal braces and backslashes are escaped with a backslash: \{ \} \\.
package format

import (
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindDatetime
	KindFlag
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDatetime:
		return "datetime"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union produced by a block for one update.
// Numbers (integer or float) may carry a Unit.
type Value struct {
	kind    Kind
	text    string
	integer int64
	float   float64
	time    time.Time
	layout  string
	flag    bool
	unit    Unit
}

// Text returns a string value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Integer returns an integral number value.
func Integer(n int64) Value {
	return Value{kind: KindInteger, integer: n}
}

// Float returns a floating point number value. Floats are rendered in
// engineering notation.
func Float(f float64) Value {
	return Value{kind: KindFloat, float: f}
}

// Datetime returns a timestamp value rendered with the given strftime layout.
// An empty layout renders as "%H:%M".
func Datetime(t time.Time, layout string) Value {
	return Value{kind: KindDatetime, time: t, layout: layout}
}

// Flag returns a boolean value.
func Flag(b bool) Value {
	return Value{kind: KindFlag, flag: b}
}

// WithUnit returns a copy of v tagged with unit u. It has no effect on
// non-numeric values.
func (v Value) WithUnit(u Unit) Value {
	if v.kind != KindInteger && v.kind != KindFloat {
		return v
	}
	v.unit = u
	return v
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Unit reports the unit attached to a numeric value.
func (v Value) Unit() Unit { return v.unit }

// Number returns the numeric content of v. Flags count as 1 or 0.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.integer), true
	case KindFloat:
		return v.float, true
	case KindFlag:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String renders v without any placeholder options. It is meant for logs
// and debugging, not for bar output.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindInteger:
		return strconv.FormatInt(v.integer, 10) + v.unit.Glyph()
	case KindFloat:
		return strconv.FormatFloat(v.float, 'g', -1, 64) + v.unit.Glyph()
	case KindDatetime:
		return v.time.Format(time.RFC3339)
	case KindFlag:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Values maps placeholder names to the values a block produced.
type Values map[string]Value

// Keys returns the names present in vals in no particular order.
func (vals Values) Keys() []string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	return keys
}
