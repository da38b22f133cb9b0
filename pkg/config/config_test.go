package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTOML = `
theme = "solarized"
error_interval = 10
bar_width = 120

[icons]
name = "awesome6"
[icons.overrides]
cpu = "C"

[[block]]
block = "cpu"
interval = "2s"
format = { full = "{utilization}", short = "{utilization:1}" }
signal = 3
warning = 70.5

[[block.click]]
button = "left"
cmd = "htop"
sync = true
update = true

[[block]]
block = "time"
instance = "utc"
interval = "once"
format = "{time}"
timezone = "UTC"
theme_overrides = { idle_fg = "#ffffff" }
`

func TestLoadFromReaderTOML(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(sampleTOML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	checkSample(t, cfg)
}

const sampleYAML = `
theme: solarized
error_interval: 10
bar_width: 120
icons:
  name: awesome6
  overrides:
    cpu: C
block:
  - block: cpu
    interval: 2s
    format:
      full: "{utilization}"
      short: "{utilization:1}"
    signal: 3
    warning: 70.5
    click:
      - button: left
        cmd: htop
        sync: true
        update: true
  - block: time
    instance: utc
    interval: once
    format: "{time}"
    timezone: UTC
    theme_overrides:
      idle_fg: "#ffffff"
`

func TestLoadYAMLFromReader(t *testing.T) {
	cfg, err := LoadYAMLFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadYAMLFromReader: %v", err)
	}
	checkSample(t, cfg)
}

func checkSample(t *testing.T, cfg *Config) {
	t.Helper()

	if cfg.Theme.Name != "solarized" {
		t.Errorf("Theme = %+v", cfg.Theme)
	}
	if cfg.Icons.Name != "awesome6" || cfg.Icons.Overrides["cpu"] != "C" {
		t.Errorf("Icons = %+v", cfg.Icons)
	}
	if cfg.ErrorInterval.Duration != 10*time.Second {
		t.Errorf("ErrorInterval = %v", cfg.ErrorInterval)
	}
	if cfg.BarWidth != 120 {
		t.Errorf("BarWidth = %d", cfg.BarWidth)
	}
	if len(cfg.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(cfg.Blocks))
	}

	cpu := cfg.Blocks[0]
	if cpu.Type != "cpu" || cpu.Interval.Duration != 2*time.Second || cpu.Signal != 3 {
		t.Errorf("cpu block = %+v", cpu)
	}
	if cpu.Format.Full != "{utilization}" || cpu.Format.Short != "{utilization:1}" {
		t.Errorf("cpu format = %+v", cpu.Format)
	}
	if cpu.Settings["warning"] != 70.5 {
		t.Errorf("cpu settings = %v", cpu.Settings)
	}
	if len(cpu.Clicks) != 1 {
		t.Fatalf("cpu clicks = %+v", cpu.Clicks)
	}
	if c := cpu.Clicks[0]; c.Button != "left" || c.Cmd != "htop" || !c.Sync || !c.Update || !c.Pass {
		t.Errorf("click = %+v", c)
	}
	if cpu.InstanceAt(0) != "0" {
		t.Errorf("default instance = %q, want position", cpu.InstanceAt(0))
	}

	clock := cfg.Blocks[1]
	if !clock.Interval.Once {
		t.Errorf("time interval = %+v, want once", clock.Interval)
	}
	if clock.InstanceAt(1) != "utc" {
		t.Errorf("instance = %q", clock.InstanceAt(1))
	}
	if clock.Settings["timezone"] != "UTC" {
		t.Errorf("time settings = %v", clock.Settings)
	}
	if clock.ThemeOverrides["idle_fg"] != "#ffffff" {
		t.Errorf("theme overrides = %v", clock.ThemeOverrides)
	}
}

func TestLoadEmptyUsesPreset(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`preset = "system"`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if len(cfg.Blocks) != 5 || cfg.Blocks[4].Type != "time" {
		t.Errorf("system preset blocks = %+v", cfg.Blocks)
	}

	if _, err := LoadFromReader(strings.NewReader(`preset = "nope"`)); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("colour = 1\n")); err == nil {
		t.Error("unknown top-level key accepted")
	}
	if _, err := LoadFromReader(strings.NewReader("[[block]]\nblock = \"time\"\n[[block.click]]\nbutton = \"left\"\nbogus = 1\n")); err == nil {
		t.Error("unknown click key accepted")
	}
	if _, err := LoadFromReader(strings.NewReader("[[block]]\ninterval = 1\n")); err == nil {
		t.Error("block without type accepted")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Theme.Name != "plain" {
		t.Errorf("default theme = %q", cfg.Theme.Name)
	}
}

func TestLoadFromFileYAMLExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	checkSample(t, cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BARPULSE_THEME", "gruvbox")
	t.Setenv("BARPULSE_LOG_LEVEL", "debug")

	cfg, err := LoadFromReader(strings.NewReader(`theme = { file = "/tmp/x.toml" }`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Theme.Name != "gruvbox" || cfg.Theme.File != "" {
		t.Errorf("Theme = %+v", cfg.Theme)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if p := Locate(); p != "" && strings.HasPrefix(p, dir) {
		t.Errorf("Locate found %q in an empty dir", p)
	}

	want := filepath.Join(dir, "barpulse", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(want), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if got := Locate(); got != want {
		t.Errorf("Locate = %q, want %q", got, want)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      any
		want    Duration
		wantErr bool
	}{
		{"1s", Duration{Duration: time.Second}, false},
		{"500ms", Duration{Duration: 500 * time.Millisecond}, false},
		{"10", Seconds(10), false},
		{int64(3), Seconds(3), false},
		{2, Seconds(2), false},
		{0.5, Seconds(0.5), false},
		{"once", Once, false},
		{"ONCE", Once, false},
		{"", Duration{}, false},
		{nil, Duration{}, false},
		{"-1s", Duration{}, true},
		{int64(-1), Duration{}, true},
		{"soon", Duration{}, true},
		{true, Duration{}, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDurationMarshalText(t *testing.T) {
	b, _ := Once.MarshalText()
	if string(b) != "once" {
		t.Errorf("Once = %q", b)
	}
	b, _ = Seconds(90).MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("90s = %q", b)
	}
}

func TestValidate(t *testing.T) {
	known := []string{"cpu", "time", "memory"}
	buttons := func(b string) bool { return b == "left" || b == "right" }

	tests := []struct {
		name    string
		blocks  []BlockConfig
		wantErr string
	}{
		{"ok", []BlockConfig{{Type: "cpu", Signal: 4}, {Type: "time"}}, ""},
		{"unknown type suggests", []BlockConfig{{Type: "memroy"}}, `did you mean "memory"`},
		{"signal range", []BlockConfig{{Type: "cpu", Signal: 31}}, "out of range"},
		{"bad button", []BlockConfig{{Type: "cpu", Clicks: []ClickConfig{{Button: "thumb", Cmd: "x", Pass: true}}}}, "unknown click button"},
		{"duplicate button", []BlockConfig{{Type: "cpu", Clicks: []ClickConfig{{Button: "left", Cmd: "a"}, {Button: "left", Cmd: "b"}}}}, "bound twice"},
		{"useless click", []BlockConfig{{Type: "cpu", Clicks: []ClickConfig{{Button: "left"}}}}, "does nothing"},
		{"bad align", []BlockConfig{{Type: "cpu", Align: "middle"}}, "unknown align"},
		{"duplicate identity", []BlockConfig{{Type: "cpu", Instance: "a"}, {Type: "cpu", Instance: "a"}}, "share name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Config{Blocks: tt.blocks}, known, buttons)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want %q", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Errorf("error is not a *ValidationError: %T", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"n":      1,
		"tables": []any{map[string]any{"a": 1}},
		"list":   []any{"x", 2},
	}
	out := Normalize(in).(map[string]any)
	if out["n"] != int64(1) {
		t.Errorf("n = %#v", out["n"])
	}
	tables, ok := out["tables"].([]map[string]any)
	if !ok || tables[0]["a"] != int64(1) {
		t.Errorf("tables = %#v", out["tables"])
	}
	list, ok := out["list"].([]any)
	if !ok || list[1] != int64(2) {
		t.Errorf("list = %#v", out["list"])
	}
}

func TestIsCommonKey(t *testing.T) {
	if !IsCommonKey("interval") || IsCommonKey("timezone") {
		t.Error("IsCommonKey misclassified keys")
	}
}
