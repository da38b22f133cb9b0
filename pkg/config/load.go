package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultErrorInterval is how long a failed block waits before it is
// rebuilt when neither the block nor the config sets error_interval.
const DefaultErrorInterval = 5 * time.Second

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/barpulse/config.toml (then config.yaml, config.yml)
//  2. ~/.config/barpulse/config.toml (same extensions)
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	if p := Locate(); p != "" {
		return LoadFromFile(p)
	}
	return finish(DefaultConfig())
}

// Locate returns the first existing config file on the search path, or "".
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadFromFile reads configuration from a specific file path. Files ending
// in .yaml or .yml are decoded as YAML, everything else as TOML.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err := LoadYAMLFromReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads TOML configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, err
	}
	for _, key := range md.Undecoded() {
		// Tables behind a custom unmarshaler validate their own keys.
		switch key[0] {
		case "block", "theme", "icons":
			continue
		}
		return nil, fmt.Errorf("unknown config key %q", key.String())
	}
	return finish(cfg)
}

// LoadYAMLFromReader reads YAML configuration from an io.Reader.
func LoadYAMLFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	if len(cfg.Blocks) == 0 {
		blocks, err := PresetBlocks(cfg.Preset)
		if err != nil {
			return nil, err
		}
		cfg.Blocks = blocks
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration with sensible defaults.
// Blocks are left empty; loaders fill them from the preset.
func DefaultConfig() *Config {
	return &Config{
		Theme:         ThemeRef{Name: "plain"},
		Icons:         ThemeRef{Name: "none"},
		Preset:        "minimal",
		ErrorInterval: Duration{Duration: DefaultErrorInterval},
		LogLevel:      "info",
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BARPULSE_THEME"); v != "" {
		cfg.Theme.Name = v
		cfg.Theme.File = ""
	}
	if v := os.Getenv("BARPULSE_ICONS"); v != "" {
		cfg.Icons.Name = v
		cfg.Icons.File = ""
	}
	if v := os.Getenv("BARPULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	xdg := xdgConfigHome(home)
	dirs = append(dirs, filepath.Join(xdg, "barpulse"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		dirs = append(dirs, filepath.Join(defaultXDG, "barpulse"))
	}

	var paths []string
	for _, d := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(d, name))
		}
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// RuntimeDir returns XDG_RUNTIME_DIR/barpulse, falling back to the temp
// directory. It holds the default IPC socket and pid file.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "barpulse")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("barpulse-%d", os.Getuid()))
}
