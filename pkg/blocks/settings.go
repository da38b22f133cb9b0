package blocks

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
)

// Settings holds the block-specific keys of one [[block]] table.
type Settings map[string]any

// Decode fills v (a pointer to a struct with toml tags) from s. Unknown
// keys are reported with a suggestion drawn from v's fields. Values are
// round-tripped through the TOML codec so YAML and TOML configs decode
// identically.
func (s Settings) Decode(block string, v any) error {
	if len(s) == 0 {
		return nil
	}
	clean := make(map[string]any, len(s))
	for k, val := range s {
		if val != nil {
			clean[k] = val
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(clean); err != nil {
		return &ConfigError{Block: block, Err: err}
	}
	md, err := toml.Decode(buf.String(), v)
	if err != nil {
		return &ConfigError{Block: block, Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		key := undecoded[0].String()
		if hint := suggest.Closest(key, settingKeys(v)); hint != "" {
			return Configf(block, "unknown setting %q (did you mean %q?)", key, hint)
		}
		return Configf(block, "unknown setting %q", key)
	}
	return nil
}

// settingKeys lists the toml keys of the struct v points to.
func settingKeys(v any) []string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(f.Name)
		}
		keys = append(keys, name)
	}
	return keys
}

// String renders the settings for debug logs.
func (s Settings) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any(s)); err != nil {
		return fmt.Sprintf("%v", map[string]any(s))
	}
	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "\n", "; "))
}
