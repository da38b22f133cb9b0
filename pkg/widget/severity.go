// Package widget defines the rendered output a block contributes to the
// status line: ordered fragments plus a severity, and the error overlay
// shown while a block is retrying.
package widget

import (
	"fmt"
	"strings"
)

// Severity classifies a widget for coloring.
type Severity int

const (
	Idle Severity = iota
	Info
	Good
	Warning
	Critical
	Error
)

var severityNames = [...]string{"idle", "info", "good", "warning", "critical", "error"}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s < Idle || s > Error {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity is the inverse of String. It is case-insensitive and
// treats the empty string as Idle.
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Idle, nil
	}
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so severities can be
// read from JSON block output and TOML theme tables.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Severities lists every severity in ascending order.
func Severities() []Severity {
	return []Severity{Idle, Info, Good, Warning, Critical, Error}
}

// Max returns the more severe of a and b.
func Max(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}
