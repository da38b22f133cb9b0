// Package theme resolves widget severities to colors and icon keys to
// glyphs. Themes and icon sets come from built-ins or TOML files and can be
// overridden per key, globally or per block.
package theme

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// NativeSeparator selects the bar's own separator lines.
const NativeSeparator = "native"

// AutoColor as a separator color takes the neighbouring block's background.
const AutoColor = "auto"

// Colors is a foreground/background pair plus the i3bar border drawn
// around a block. Empty means the bar default.
type Colors struct {
	FG     string
	BG     string
	Border string
}

// Theme maps every severity to colors and describes the separator drawn
// between blocks.
type Theme struct {
	Name string

	Idle     Colors
	Info     Colors
	Good     Colors
	Warning  Colors
	Critical Colors
	Error    Colors

	// Separator is NativeSeparator or a glyph emitted between blocks.
	Separator   string
	SeparatorFG string
	SeparatorBG string
}

// Colors returns the pair for a severity.
func (t *Theme) Colors(s widget.Severity) Colors {
	switch s {
	case widget.Info:
		return t.Info
	case widget.Good:
		return t.Good
	case widget.Warning:
		return t.Warning
	case widget.Critical:
		return t.Critical
	case widget.Error:
		return t.Error
	default:
		return t.Idle
	}
}

// NativeSeparator reports whether the bar draws its own separators.
func (t *Theme) NativeSeparator() bool {
	return t.Separator == "" || t.Separator == NativeSeparator
}

// thColorField returns a pointer to the field an override key names.
func (t *Theme) thColorField(key string) (*string, bool) {
	sev, part, ok := strings.Cut(key, "_")
	if !ok {
		return nil, false
	}
	if sev == "separator" {
		switch part {
		case "fg":
			return &t.SeparatorFG, true
		case "bg":
			return &t.SeparatorBG, true
		}
		return nil, false
	}
	s, err := widget.ParseSeverity(sev)
	if err != nil || sev == "" {
		return nil, false
	}
	var c *Colors
	switch s {
	case widget.Idle:
		c = &t.Idle
	case widget.Info:
		c = &t.Info
	case widget.Good:
		c = &t.Good
	case widget.Warning:
		c = &t.Warning
	case widget.Critical:
		c = &t.Critical
	case widget.Error:
		c = &t.Error
	}
	switch part {
	case "fg":
		return &c.FG, true
	case "bg":
		return &c.BG, true
	case "border":
		return &c.Border, true
	}
	return nil, false
}

// OverrideKeys lists every key accepted by WithOverrides.
func OverrideKeys() []string {
	keys := []string{"separator", "separator_fg", "separator_bg"}
	for _, s := range widget.Severities() {
		keys = append(keys, s.String()+"_fg", s.String()+"_bg", s.String()+"_border")
	}
	return keys
}

// WithOverrides returns a copy of t with the given keys replaced. Keys are
// "<severity>_fg", "<severity>_bg", "<severity>_border", "separator",
// "separator_fg" and "separator_bg".
func (t *Theme) WithOverrides(overrides map[string]string) (*Theme, error) {
	out := *t
	for key, val := range overrides {
		if key == "separator" {
			out.Separator = val
			continue
		}
		field, ok := out.thColorField(key)
		if !ok {
			if hint := suggest.Closest(key, OverrideKeys()); hint != "" {
				return nil, fmt.Errorf("theme: unknown override %q (did you mean %q?)", key, hint)
			}
			return nil, fmt.Errorf("theme: unknown override %q", key)
		}
		if err := thValidateColor(key, val); err != nil {
			return nil, err
		}
		*field = val
	}
	return &out, nil
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	thRegisterBuiltins()
	thRegisterBuiltinIcons()
}

// Get returns a named theme, falling back to "plain" if not found.
func Get(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	mu.RLock()
	defer mu.RUnlock()
	return registry["plain"]
}

// Lookup returns a named built-in theme.
func Lookup(name string) (Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[strings.ToLower(name)]
	return t, ok
}

// Names returns all available theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves a theme from a file (when file is set) or a built-in name,
// then applies overrides. Unknown names are an error.
func Load(name, file string, overrides map[string]string) (*Theme, error) {
	var t Theme
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("theme: %w", err)
		}
		if t, err = LoadFromTOML(data); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	default:
		if name == "" {
			name = "plain"
		}
		var ok bool
		if t, ok = Lookup(name); !ok {
			if hint := suggest.Closest(name, Names()); hint != "" {
				return nil, fmt.Errorf("theme: unknown theme %q (did you mean %q?)", name, hint)
			}
			return nil, fmt.Errorf("theme: unknown theme %q (available: %s)", name, strings.Join(Names(), ", "))
		}
	}
	return t.WithOverrides(overrides)
}

// thRegister adds a theme to the registry under its lowercase name.
func thRegister(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
