package config

import (
	"fmt"
	"sort"
	"time"
)

// presets maps a preset name to a constructor for its block list.
var presets = map[string]func() []BlockConfig{
	"minimal": minimalPreset,
	"system":  systemPreset,
	"ops":     opsPreset,
}

// PresetNames returns the built-in preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetBlocks returns the block list for a named preset. The empty name
// selects "minimal".
func PresetBlocks(name string) ([]BlockConfig, error) {
	if name == "" {
		name = "minimal"
	}
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return fn(), nil
}

func block(typ string, interval time.Duration, settings map[string]any) BlockConfig {
	if settings == nil {
		settings = map[string]any{}
	}
	return BlockConfig{Type: typ, Interval: Duration{Duration: interval}, Settings: settings}
}

// minimalPreset is a single clock.
//
//	[time]
func minimalPreset() []BlockConfig {
	return []BlockConfig{
		block("time", time.Second, nil),
	}
}

// systemPreset shows local resource usage.
//
//	[cpu] [memory] [load] [disk_space] [time]
func systemPreset() []BlockConfig {
	return []BlockConfig{
		block("cpu", time.Second, nil),
		block("memory", 5*time.Second, nil),
		block("load", 5*time.Second, nil),
		block("disk_space", 30*time.Second, map[string]any{"path": "/"}),
		block("time", time.Second, nil),
	}
}

// opsPreset adds network and cluster state.
//
//	[net] [tailscale] [kubernetes] [cpu] [time]
func opsPreset() []BlockConfig {
	return []BlockConfig{
		block("net", 2*time.Second, nil),
		block("tailscale", 30*time.Second, nil),
		block("kubernetes", time.Minute, nil),
		block("cpu", time.Second, nil),
		block("time", time.Second, nil),
	}
}
