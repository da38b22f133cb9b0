package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// ClickHandler is the configured reaction to one mouse button.
type ClickHandler struct {
	Cmd    string
	Sync   bool
	Update bool
	Pass   bool
}

// SlotSpec is everything needed to (re)build one slot's runtime unit.
type SlotSpec struct {
	Name     string
	Instance string

	Type     blocks.Type
	Settings blocks.Settings

	FormatFull  string
	FormatShort string

	// Interval is the polling period; zero means no polling.
	Interval      time.Duration
	ErrorInterval time.Duration
	Signal        int

	Clicks map[protocol.Button]ClickHandler

	Theme    *theme.Theme
	Icons    theme.Icons
	MinWidth int
	Align    widget.Align
}

// BuildEnv carries the resolved global state SpecsFromConfig needs.
type BuildEnv struct {
	Registry *blocks.Registry
	Theme    *theme.Theme
	Icons    theme.Icons
	Logger   *slog.Logger

	// RunCommand evaluates if_command guards. Defaults to ShellRunner.
	RunCommand CommandRunner
}

// SpecsFromConfig resolves every [[block]] into a SlotSpec, in order.
// Blocks whose if_command fails are left out. Any static problem (unknown
// type, bad override, bad button) is returned as an error.
func SpecsFromConfig(ctx context.Context, cfg *config.Config, env BuildEnv) ([]SlotSpec, error) {
	run := env.RunCommand
	if run == nil {
		run = ShellRunner
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	specs := make([]SlotSpec, 0, len(cfg.Blocks))
	for pos, b := range cfg.Blocks {
		if b.IfCommand != "" {
			if err := run(ctx, b.IfCommand, nil); err != nil {
				logger.Info("block disabled by if_command", "block", b.Type, "position", pos, "error", err)
				continue
			}
		}

		t, ok := env.Registry.Get(b.Type)
		if !ok {
			return nil, blocks.Configf(b.Type, "unknown block type")
		}

		spec := SlotSpec{
			Name:          b.Type,
			Instance:      b.InstanceAt(pos),
			Type:          t,
			Settings:      blocks.Settings(b.Settings),
			FormatFull:    b.Format.Full,
			FormatShort:   b.Format.Short,
			Interval:      b.Interval.Duration,
			ErrorInterval: b.EffectiveErrorInterval(cfg.ErrorInterval),
			Signal:        b.Signal,
			Theme:         env.Theme,
			Icons:         env.Icons.WithOverrides(b.IconsOverrides),
			MinWidth:      b.MinWidth,
		}
		if spec.FormatFull == "" {
			spec.FormatFull = t.DefaultFormat
		}
		switch {
		case b.Interval.Once:
			spec.Interval = 0
		case b.Interval.IsZero():
			spec.Interval = t.DefaultInterval
		}

		var err error
		if spec.Align, err = widget.ParseAlign(b.Align); err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", pos, b.Type, err)
		}
		if len(b.ThemeOverrides) > 0 && env.Theme != nil {
			if spec.Theme, err = env.Theme.WithOverrides(b.ThemeOverrides); err != nil {
				return nil, fmt.Errorf("block %d (%s): %w", pos, b.Type, err)
			}
		}
		if len(b.Clicks) > 0 {
			spec.Clicks = make(map[protocol.Button]ClickHandler, len(b.Clicks))
			for _, c := range b.Clicks {
				btn, err := protocol.ParseButton(c.Button)
				if err != nil {
					return nil, fmt.Errorf("block %d (%s): %w", pos, b.Type, err)
				}
				spec.Clicks[btn] = ClickHandler{Cmd: c.Cmd, Sync: c.Sync, Update: c.Update, Pass: c.Pass}
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
