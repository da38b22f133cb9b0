// Package config provides TOML (and YAML) configuration for barpulse.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with TOML-friendly parsing. It accepts Go
// duration strings ("1s", "5m"), bare numbers of seconds (5, 0.5, "10")
// and the keyword "once", which marks a block that never polls.
type Duration struct {
	time.Duration
	Once bool
}

// Once is the Duration of a block that updates a single time and then only
// on events, clicks, signals or a refresh.
var Once = Duration{Once: true}

// Seconds returns a Duration of n seconds.
func Seconds(n float64) Duration {
	return Duration{Duration: time.Duration(n * float64(time.Second))}
}

// IsZero reports whether d was left unset.
func (d Duration) IsZero() bool {
	return d.Duration == 0 && !d.Once
}

// ParseDuration converts a decoded config value into a Duration.
func ParseDuration(v any) (Duration, error) {
	switch x := v.(type) {
	case nil:
		return Duration{}, nil
	case Duration:
		return x, nil
	case string:
		return parseDurationString(x)
	case int:
		return durationFromSeconds(float64(x))
	case int64:
		return durationFromSeconds(float64(x))
	case uint64:
		return durationFromSeconds(float64(x))
	case float64:
		return durationFromSeconds(x)
	}
	return Duration{}, fmt.Errorf("invalid duration %v (%T)", v, v)
}

func parseDurationString(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Duration{}, nil
	case strings.EqualFold(s, "once"):
		return Once, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return durationFromSeconds(f)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return Duration{}, fmt.Errorf("negative duration %q not allowed", s)
	}
	return Duration{Duration: parsed}, nil
}

func durationFromSeconds(f float64) (Duration, error) {
	if f < 0 || f != f {
		return Duration{}, fmt.Errorf("invalid duration %v seconds", f)
	}
	return Seconds(f), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDurationString(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler so that integer and float
// seconds decode as well as strings.
func (d *Duration) UnmarshalTOML(v any) error {
	parsed, err := ParseDuration(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	parsed, err := ParseDuration(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML serialization.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Once {
		return []byte("once"), nil
	}
	return []byte(d.Duration.String()), nil
}
