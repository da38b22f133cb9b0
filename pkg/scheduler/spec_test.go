package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

const specSample = `
[[block]]
block = "cpu"
format = { full = "{utilization:3}%", short = "{utilization}" }
interval = 2
signal = 4
min_width = 6
align = "right"
theme_overrides = { good_bg = "#00ff00" }
icons_overrides = { cpu = "C" }

[[block.click]]
button = "left"
cmd = "htop"

[[block.click]]
button = "up"
update = true
pass = false

[[block]]
block = "clock"
instance = "utc"
interval = "once"
timezone = "UTC"

[[block]]
block = "clock"
if_command = "test -e /nonexistent"

[[block]]
block = "clock"
error_interval = "30s"
`

func testBuildEnv(t *testing.T) BuildEnv {
	t.Helper()
	reg := blocks.NewRegistry()
	reg.MustRegister(
		blocks.NewMockFactory().Type("cpu", 5*time.Second),
		blocks.NewMockFactory().Type("clock", time.Second),
	)
	th := theme.Get("default")
	return BuildEnv{
		Registry: reg,
		Theme:    &th,
		Icons:    theme.NewIcons("test", map[string]string{"cpu": "c", "error": "!"}),
		Logger:   discardLogger(),
		RunCommand: func(_ context.Context, cmd string, _ []string) error {
			if strings.Contains(cmd, "nonexistent") {
				return errors.New("exit status 1")
			}
			return nil
		},
	}
}

func TestSpecsFromConfig(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(specSample))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	env := testBuildEnv(t)

	specs, err := SpecsFromConfig(context.Background(), cfg, env)
	if err != nil {
		t.Fatalf("SpecsFromConfig: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3 (guarded block skipped)", len(specs))
	}

	cpu := specs[0]
	if cpu.Name != "cpu" || cpu.Instance != "0" {
		t.Errorf("cpu identity = %s/%s", cpu.Name, cpu.Instance)
	}
	if cpu.FormatFull != "{utilization:3}%" || cpu.FormatShort != "{utilization}" {
		t.Errorf("cpu formats = %q / %q", cpu.FormatFull, cpu.FormatShort)
	}
	if cpu.Interval != 2*time.Second || cpu.Signal != 4 || cpu.MinWidth != 6 {
		t.Errorf("cpu interval/signal/min_width = %v/%d/%d", cpu.Interval, cpu.Signal, cpu.MinWidth)
	}
	if cpu.Align != widget.AlignRight {
		t.Errorf("cpu align = %q", cpu.Align)
	}
	if cpu.Theme.Good.BG != "#00ff00" || env.Theme.Good.BG == "#00ff00" {
		t.Errorf("theme override not applied to a copy: block %q, global %q", cpu.Theme.Good.BG, env.Theme.Good.BG)
	}
	if cpu.Icons.Get("cpu") != "C" || cpu.Icons.Get("error") != "!" {
		t.Errorf("icons override = %q/%q", cpu.Icons.Get("cpu"), cpu.Icons.Get("error"))
	}
	if got := cpu.Clicks[protocol.ButtonLeft]; got.Cmd != "htop" || !got.Pass || got.Sync {
		t.Errorf("left click = %+v", got)
	}
	if got := cpu.Clicks[protocol.ButtonWheelUp]; !got.Update || got.Pass {
		t.Errorf("wheel up click = %+v", got)
	}
	if cpu.ErrorInterval != 5*time.Second {
		t.Errorf("cpu error interval = %v, want global default", cpu.ErrorInterval)
	}

	utc := specs[1]
	if utc.Instance != "utc" || utc.Interval != 0 {
		t.Errorf("once block = %s interval %v", utc.Instance, utc.Interval)
	}
	if utc.FormatFull != "{text}" {
		t.Errorf("default format = %q", utc.FormatFull)
	}
	if utc.Settings["timezone"] != "UTC" {
		t.Errorf("settings = %v", utc.Settings)
	}

	last := specs[2]
	if last.Instance != "3" {
		t.Errorf("instance defaults to config position, got %q", last.Instance)
	}
	if last.Interval != time.Second || last.ErrorInterval != 30*time.Second {
		t.Errorf("defaults = %v / %v", last.Interval, last.ErrorInterval)
	}
}

func TestSpecsFromConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"unknown type", `[[block]]
block = "cpuu"`, "unknown block type"},
		{"bad align", `[[block]]
block = "cpu"
align = "middle"`, "alignment"},
		{"bad override", `[[block]]
block = "cpu"
theme_overrides = { purple = "#000000" }`, "purple"},
		{"bad button", `[[block]]
block = "cpu"
[[block.click]]
button = "pinky"
cmd = "x"`, "pinky"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadFromReader(strings.NewReader(tt.toml))
			if err != nil {
				t.Fatalf("LoadFromReader: %v", err)
			}
			env := testBuildEnv(t)
			_, err = SpecsFromConfig(context.Background(), cfg, env)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestClickEnv(t *testing.T) {
	env := clickEnv(protocol.ClickEvent{
		Name: "cpu", Instance: "0", Button: protocol.ButtonRight,
		X: 1510, Y: 12.5, RelativeX: 4, Width: 60, Height: 22,
	})
	joined := strings.Join(env, "\n")
	for _, want := range []string{
		"BLOCK_NAME=cpu", "BLOCK_INSTANCE=0", "BLOCK_BUTTON=3",
		"BLOCK_X=1510", "BLOCK_Y=12.5", "BLOCK_RELATIVE_X=4", "BLOCK_WIDTH=60",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("click env missing %s:\n%s", want, joined)
		}
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateInitializing: "initializing",
		StateRunning:      "running",
		StateErroring:     "erroring",
		StateStopped:      "stopped",
		State(42):         "unknown",
	} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
