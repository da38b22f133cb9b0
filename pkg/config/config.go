package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level barpulse configuration.
type Config struct {
	Theme ThemeRef `toml:"theme" yaml:"theme"`
	Icons ThemeRef `toml:"icons" yaml:"icons"`

	// Preset names a built-in block set used when no [[block]] is configured.
	Preset string `toml:"preset" yaml:"preset"`

	// BarWidth, when positive, is the available width in cells used to
	// choose between full and short formats.
	BarWidth      int      `toml:"bar_width" yaml:"bar_width"`
	ErrorInterval Duration `toml:"error_interval" yaml:"error_interval"`

	LogLevel    string `toml:"log_level" yaml:"log_level"`
	LogFile     string `toml:"log_file" yaml:"log_file"`
	IPCSocket   string `toml:"ipc_socket" yaml:"ipc_socket"`
	PIDFile     string `toml:"pid_file" yaml:"pid_file"`
	HealthFile  string `toml:"health_file" yaml:"health_file"`
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
	WatchConfig bool   `toml:"watch_config" yaml:"watch_config"`

	Blocks []BlockConfig `toml:"block" yaml:"block"`
}

// ThemeRef selects a theme or icon set by builtin name or file path, with
// per-key overrides. In a config file it is either a bare string or a table.
type ThemeRef struct {
	Name      string            `toml:"name" yaml:"name"`
	File      string            `toml:"file" yaml:"file"`
	Overrides map[string]string `toml:"overrides" yaml:"overrides"`
}

// UnmarshalTOML implements toml.Unmarshaler.
func (r *ThemeRef) UnmarshalTOML(v any) error {
	return r.fromValue(v)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *ThemeRef) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return r.fromValue(v)
}

func (r *ThemeRef) fromValue(v any) error {
	switch x := v.(type) {
	case string:
		*r = ThemeRef{Name: x}
		return nil
	case map[string]any:
		ref := ThemeRef{}
		for k, val := range x {
			switch k {
			case "name", "theme", "icons":
				ref.Name = fmt.Sprint(val)
			case "file":
				ref.File = fmt.Sprint(val)
			case "overrides":
				m, err := stringMap(val)
				if err != nil {
					return fmt.Errorf("overrides: %w", err)
				}
				ref.Overrides = m
			default:
				return fmt.Errorf("unknown key %q", k)
			}
		}
		*r = ref
		return nil
	}
	return fmt.Errorf("expected string or table, got %T", v)
}

// FormatConfig is a block's full template and optional narrow fallback.
type FormatConfig struct {
	Full  string
	Short string
}

// ClickConfig binds a command to a mouse button on one block.
type ClickConfig struct {
	Button string
	Cmd    string
	Sync   bool
	Update bool
	// Pass forwards the click to the block's own handler as well. It
	// defaults to true.
	Pass bool
}

// BlockConfig is one [[block]] table. Keys not listed here are collected
// in Settings and decoded by the block implementation.
type BlockConfig struct {
	Type           string
	Instance       string
	Interval       Duration
	ErrorInterval  Duration
	Signal         int
	Format         FormatConfig
	MinWidth       int
	Align          string
	Clicks         []ClickConfig
	ThemeOverrides map[string]string
	IconsOverrides map[string]string
	IfCommand      string
	Settings       map[string]any
}

// commonKeys are the [[block]] keys handled by the runtime rather than the
// block implementation.
var commonKeys = []string{
	"block", "instance", "interval", "error_interval", "signal", "format",
	"min_width", "align", "click", "theme_overrides", "icons_overrides", "if_command",
}

// UnmarshalTOML implements toml.Unmarshaler.
func (b *BlockConfig) UnmarshalTOML(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("block: expected table, got %T", v)
	}
	return b.fromMap(m)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BlockConfig) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return err
	}
	return b.fromMap(m)
}

func (b *BlockConfig) fromMap(m map[string]any) error {
	cfg := BlockConfig{Settings: map[string]any{}}
	var err error
	for k, v := range m {
		switch k {
		case "block":
			cfg.Type, err = str(v)
		case "instance":
			cfg.Instance = fmt.Sprint(v)
		case "interval":
			cfg.Interval, err = ParseDuration(v)
		case "error_interval":
			cfg.ErrorInterval, err = ParseDuration(v)
		case "signal":
			cfg.Signal, err = integer(v)
		case "format":
			cfg.Format, err = parseFormat(v)
		case "min_width":
			cfg.MinWidth, err = integer(v)
		case "align":
			cfg.Align, err = str(v)
		case "click":
			cfg.Clicks, err = parseClicks(v)
		case "theme_overrides":
			cfg.ThemeOverrides, err = stringMap(v)
		case "icons_overrides":
			cfg.IconsOverrides, err = stringMap(v)
		case "if_command":
			cfg.IfCommand, err = str(v)
		default:
			cfg.Settings[k] = Normalize(v)
		}
		if err != nil {
			return fmt.Errorf("block key %q: %w", k, err)
		}
	}
	if cfg.Type == "" {
		return fmt.Errorf("block: missing %q key", "block")
	}
	*b = cfg
	return nil
}

// Name returns the block's display name.
func (b BlockConfig) Name() string { return b.Type }

// InstanceAt returns the explicit instance, or the position when none was
// configured.
func (b BlockConfig) InstanceAt(pos int) string {
	if b.Instance != "" {
		return b.Instance
	}
	return fmt.Sprint(pos)
}

// EffectiveErrorInterval falls back to the global error interval.
func (b BlockConfig) EffectiveErrorInterval(global Duration) time.Duration {
	if b.ErrorInterval.Duration > 0 {
		return b.ErrorInterval.Duration
	}
	if global.Duration > 0 {
		return global.Duration
	}
	return DefaultErrorInterval
}

func parseFormat(v any) (FormatConfig, error) {
	switch x := v.(type) {
	case string:
		return FormatConfig{Full: x}, nil
	case map[string]any:
		var f FormatConfig
		for k, val := range x {
			s, err := str(val)
			if err != nil {
				return FormatConfig{}, fmt.Errorf("%s: %w", k, err)
			}
			switch k {
			case "full":
				f.Full = s
			case "short":
				f.Short = s
			default:
				return FormatConfig{}, fmt.Errorf("unknown key %q (want full or short)", k)
			}
		}
		return f, nil
	}
	return FormatConfig{}, fmt.Errorf("expected string or {full, short} table, got %T", v)
}

func parseClicks(v any) ([]ClickConfig, error) {
	list, ok := Normalize(v).([]map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected array of tables, got %T", v)
	}
	clicks := make([]ClickConfig, 0, len(list))
	for i, m := range list {
		c := ClickConfig{Pass: true}
		var err error
		for k, val := range m {
			switch k {
			case "button":
				c.Button, err = str(val)
			case "cmd":
				c.Cmd, err = str(val)
			case "sync":
				c.Sync, err = boolean(val)
			case "update":
				c.Update, err = boolean(val)
			case "pass":
				c.Pass, err = boolean(val)
			default:
				err = fmt.Errorf("unknown key %q", k)
			}
			if err != nil {
				return nil, fmt.Errorf("click %d: %w", i, err)
			}
		}
		if c.Button == "" {
			return nil, fmt.Errorf("click %d: missing button", i)
		}
		clicks = append(clicks, c)
	}
	return clicks, nil
}

// Normalize rewrites decoded YAML/TOML values into the shapes the TOML
// encoder and the block settings decoder expect: arrays of tables become
// []map[string]any and YAML's int becomes int64.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, m := range x {
			out[i] = Normalize(m).(map[string]any)
		}
		return out
	case []any:
		if len(x) == 0 {
			return x
		}
		tables := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				out := make([]any, len(x))
				for i, val := range x {
					out[i] = Normalize(val)
				}
				return out
			}
			tables = append(tables, Normalize(m).(map[string]any))
		}
		return tables
	}
	return v
}

func str(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func integer(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %v", v)
}

func boolean(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func stringMap(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected table, got %T", v)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[k] = fmt.Sprint(val)
	}
	return out, nil
}


// IsCommonKey reports whether key is handled by the runtime for every block.
func IsCommonKey(key string) bool {
	for _, k := range commonKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
