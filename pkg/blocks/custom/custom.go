// Package custom provides the custom block: the output of a shell command,
// either as plain lines (full text, then short text) or as a JSON object.
// The command re-runs on its interval, on clicks and signals, and whenever
// one of its watch_files changes.
package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/watch"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 10 * time.Second

// Settings are the custom block's keys.
type Settings struct {
	Command    string          `toml:"command"`
	JSON       bool            `toml:"json"`
	Shell      string          `toml:"shell"`
	Timeout    config.Duration `toml:"timeout"`
	WatchFiles []string        `toml:"watch_files"`
}

// Type returns the registrable custom block type.
func Type() blocks.Type {
	return blocks.Type{
		Name:            "custom",
		New:             New,
		DefaultFormat:   "{text}",
		DefaultInterval: 10 * time.Second,
	}
}

// Block runs a command and shows what it prints.
type Block struct {
	cfg     Settings
	env     []string
	logger  *slog.Logger
	watcher *watch.Watcher
}

// jsonOutput is the object a command prints in json mode.
type jsonOutput struct {
	Text      string `json:"text"`
	ShortText string `json:"short_text"`
	Icon      string `json:"icon"`
	State     string `json:"state"`
}

// New builds a custom block from its settings.
func New(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
	cfg := Settings{Shell: "sh", Timeout: config.Duration{Duration: DefaultTimeout}}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, blocks.Configf(env.Name, "command is required")
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Block{
		cfg:    cfg,
		logger: logger,
		env:    []string{"BLOCK_NAME=" + env.Name, "BLOCK_INSTANCE=" + env.Instance},
	}
	if len(cfg.WatchFiles) > 0 {
		paths := make([]string, len(cfg.WatchFiles))
		for i, p := range cfg.WatchFiles {
			paths[i] = expandHome(p)
		}
		w, err := watch.New(paths, 0, logger)
		if err != nil {
			return nil, blocks.Fail("watch failed", err)
		}
		b.watcher = w
	}
	return b, nil
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/" + rest
		}
	}
	return p
}

// Update implements blocks.Block.
func (b *Block) Update(ctx context.Context) (*blocks.Output, error) {
	stdout, err := b.run(ctx)
	if err != nil {
		return nil, err
	}
	if b.cfg.JSON {
		return parseJSON(stdout)
	}
	return parseLines(stdout), nil
}

func (b *Block) run(ctx context.Context) ([]byte, error) {
	if b.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout.Duration)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, b.cfg.Shell, "-c", b.cfg.Command)
	cmd.Env = append(os.Environ(), b.env...)
	// Background children may hold stdout open after the shell is killed.
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, blocks.Fail("timeout", fmt.Errorf("%q did not finish within %v", b.cfg.Command, b.cfg.Timeout.Duration))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, blocks.Fail("command failed", err)
	}
	return out, nil
}

// parseLines reads i3blocks-style output: full text on the first line,
// short text on the second. Empty output hides the block.
func parseLines(out []byte) *blocks.Output {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	text := strings.TrimSpace(lines[0])
	if text == "" {
		return &blocks.Output{}
	}
	short := text
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		short = strings.TrimSpace(lines[1])
	}
	return blocks.Values(format.Values{
		"text":       format.Text(text),
		"short_text": format.Text(short),
	})
}

func parseJSON(out []byte) (*blocks.Output, error) {
	var j jsonOutput
	if err := json.Unmarshal(bytes.TrimSpace(out), &j); err != nil {
		return nil, blocks.Fail("bad json", err)
	}
	if j.Text == "" {
		return &blocks.Output{}, nil
	}
	state, err := widget.ParseSeverity(j.State)
	if err != nil {
		return nil, blocks.Fail("bad state", err)
	}
	short := j.ShortText
	if short == "" {
		short = j.Text
	}
	return &blocks.Output{
		Icon:  j.Icon,
		State: state,
		Values: format.Values{
			"text":       format.Text(j.Text),
			"short_text": format.Text(short),
		},
	}, nil
}

// Events implements blocks.Notifier. It is nil without watch_files.
func (b *Block) Events() <-chan struct{} {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Events()
}

// Close stops the file watcher.
func (b *Block) Close() error {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Close()
}
