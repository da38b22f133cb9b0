package config

import (
	"errors"
	"fmt"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
)

// MaxSignal is the highest per-block signal number; block signal n is
// delivered as SIGRTMIN+n.
const MaxSignal = 30

// ValidationError collects every problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid config: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid config: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// Validate checks static properties that make a config unusable: unknown
// block types, out-of-range signals, unknown buttons and negative widths.
// knownTypes lists the registered block types; validButton reports whether
// a click button name is recognised.
func Validate(cfg *Config, knownTypes []string, validButton func(string) bool) error {
	known := make(map[string]bool, len(knownTypes))
	for _, t := range knownTypes {
		known[t] = true
	}

	var problems []string
	add := func(pos int, b BlockConfig, format string, args ...any) {
		problems = append(problems, fmt.Sprintf("block %d (%s): ", pos, b.Type)+fmt.Sprintf(format, args...))
	}

	if cfg.BarWidth < 0 {
		problems = append(problems, "bar_width must not be negative")
	}

	for pos, b := range cfg.Blocks {
		if !known[b.Type] {
			if s := suggest.Closest(b.Type, knownTypes); s != "" {
				add(pos, b, "unknown block type (did you mean %q?)", s)
			} else {
				add(pos, b, "unknown block type")
			}
		}
		if b.Signal < 0 || b.Signal > MaxSignal {
			add(pos, b, "signal %d out of range 0..%d", b.Signal, MaxSignal)
		}
		if b.MinWidth < 0 {
			add(pos, b, "min_width must not be negative")
		}
		switch b.Align {
		case "", "left", "center", "right":
		default:
			add(pos, b, "unknown align %q", b.Align)
		}
		seen := map[string]bool{}
		for _, c := range b.Clicks {
			if validButton != nil && !validButton(c.Button) {
				add(pos, b, "unknown click button %q", c.Button)
			}
			if seen[c.Button] {
				add(pos, b, "button %q bound twice", c.Button)
			}
			seen[c.Button] = true
			if c.Cmd == "" && c.Update {
				continue
			}
			if c.Cmd == "" && !c.Pass {
				add(pos, b, "click on %q does nothing", c.Button)
			}
		}
	}

	for i, a := range cfg.Blocks {
		for j := i + 1; j < len(cfg.Blocks); j++ {
			if b := cfg.Blocks[j]; a.Instance != "" && a.Type == b.Type && a.Instance == b.Instance {
				problems = append(problems, fmt.Sprintf("blocks %d and %d share name %q and instance %q", i, j, a.Type, a.Instance))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
