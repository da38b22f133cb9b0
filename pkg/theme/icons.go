package theme

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
)

// Icons maps icon keys (as returned by blocks) to glyphs.
type Icons struct {
	Name   string
	glyphs map[string]string
}

// NewIcons builds an icon set from a key to glyph table.
func NewIcons(name string, glyphs map[string]string) Icons {
	cp := make(map[string]string, len(glyphs))
	for k, v := range glyphs {
		cp[k] = v
	}
	return Icons{Name: name, glyphs: cp}
}

// Get returns the glyph for key, or "" when the set has none.
func (i Icons) Get(key string) string {
	if key == "" {
		return ""
	}
	return i.glyphs[key]
}

// Keys returns the icon keys defined by the set, sorted.
func (i Icons) Keys() []string {
	keys := make([]string, 0, len(i.glyphs))
	for k := range i.glyphs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithOverrides returns a copy of i with the given glyphs replaced or added.
func (i Icons) WithOverrides(overrides map[string]string) Icons {
	if len(overrides) == 0 {
		return i
	}
	out := NewIcons(i.Name, i.glyphs)
	for k, v := range overrides {
		out.glyphs[k] = v
	}
	return out
}

var iconSets = map[string]Icons{}

func thRegisterIcons(i Icons) {
	mu.Lock()
	defer mu.Unlock()
	iconSets[strings.ToLower(i.Name)] = i
}

// IconSetNames returns the built-in icon set names, sorted.
func IconSetNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(iconSets))
	for name := range iconSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadIcons resolves an icon set from a TOML file (a flat key = "glyph"
// table) or a built-in name, then applies overrides.
func LoadIcons(name, file string, overrides map[string]string) (Icons, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Icons{}, fmt.Errorf("icons: %w", err)
		}
		var glyphs map[string]string
		if err := toml.Unmarshal(data, &glyphs); err != nil {
			return Icons{}, fmt.Errorf("icons: %s: %w", file, err)
		}
		return NewIcons(file, glyphs).WithOverrides(overrides), nil
	}

	if name == "" {
		name = "none"
	}
	mu.RLock()
	set, ok := iconSets[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		if hint := suggest.Closest(name, IconSetNames()); hint != "" {
			return Icons{}, fmt.Errorf("icons: unknown icon set %q (did you mean %q?)", name, hint)
		}
		return Icons{}, fmt.Errorf("icons: unknown icon set %q", name)
	}
	return set.WithOverrides(overrides), nil
}

func thRegisterBuiltinIcons() {
	thRegisterIcons(NewIcons("none", map[string]string{
		"cpu":        "CPU",
		"memory":     "MEM",
		"swap":       "SWAP",
		"load":       "LOAD",
		"disk":       "DISK",
		"uptime":     "UP",
		"net_down":   "v",
		"net_up":     "^",
		"tailscale":  "TS",
		"kubernetes": "K8S",
	}))
	thRegisterIcons(NewIcons("awesome6", map[string]string{
		"time":       "",
		"cpu":        "",
		"memory":     "",
		"swap":       "",
		"load":       "",
		"disk":       "",
		"uptime":     "",
		"net_down":   "",
		"net_up":     "",
		"net":        "",
		"tailscale":  "",
		"kubernetes": "",
		"dbus":       "",
		"error":      "",
	}))
}
