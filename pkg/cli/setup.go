package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/builtin"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
)

// resolveConfigPath returns the explicit --config path or the first file
// on the search path. An empty result means built-in defaults.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return config.Locate()
}

// loadConfig reads and validates the config at path. Every failure is a
// configError.
func loadConfig(path string, registry *blocks.Registry) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFromFile(path)
	}
	if err != nil {
		return nil, &configError{fmt.Errorf("load config: %w", err)}
	}
	if err := config.Validate(cfg, registry.List(), protocol.ValidButton); err != nil {
		return nil, &configError{err}
	}
	return cfg, nil
}

// newLogger builds the process logger: a text handler on console, tee'd
// into log_file when one is configured. stdout belongs to the bar, so
// console is normally stderr.
func newLogger(cfg *config.Config, verbose bool, console io.Writer) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, nil, &configError{fmt.Errorf("log_level: %w", err)}
		}
	}

	var (
		out    io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

// loadTheme resolves the configured theme and icon set.
func loadTheme(cfg *config.Config) (*theme.Theme, theme.Icons, error) {
	th, err := theme.Load(cfg.Theme.Name, cfg.Theme.File, cfg.Theme.Overrides)
	if err != nil {
		return nil, theme.Icons{}, &configError{err}
	}
	icons, err := theme.LoadIcons(cfg.Icons.Name, cfg.Icons.File, cfg.Icons.Overrides)
	if err != nil {
		return nil, theme.Icons{}, &configError{err}
	}
	return th, icons, nil
}

// specs resolves cfg into slot specs.
func specs(ctx context.Context, cfg *config.Config, registry *blocks.Registry, logger *slog.Logger) ([]scheduler.SlotSpec, *theme.Theme, error) {
	th, icons, err := loadTheme(cfg)
	if err != nil {
		return nil, nil, err
	}
	out, err := scheduler.SpecsFromConfig(ctx, cfg, scheduler.BuildEnv{
		Registry: registry,
		Theme:    th,
		Icons:    icons,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, &configError{err}
	}
	return out, th, nil
}

// buildFunc re-reads the config on every call, so a restart picks up
// edits. A broken edit fails the build and the scheduler keeps the
// current blocks.
func buildFunc(path string, registry *blocks.Registry, logger *slog.Logger) scheduler.BuildFunc {
	return func(ctx context.Context) ([]scheduler.SlotSpec, error) {
		cfg, err := loadConfig(path, registry)
		if err != nil {
			return nil, err
		}
		out, _, err := specs(ctx, cfg, registry, logger)
		return out, err
	}
}

func defaultRuntimePath(configured, name string) string {
	if configured != "" {
		return expandHome(configured)
	}
	return filepath.Join(config.RuntimeDir(), name)
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newRegistry is a seam for tests.
var newRegistry = builtin.Registry
