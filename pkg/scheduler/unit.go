package scheduler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// clickBuffer bounds the clicks queued for one unit; further clicks are
// dropped while it is busy.
const clickBuffer = 8

// update is what a unit posts to the scheduler.
type update struct {
	gen    uint64
	pos    int
	state  State
	widget widget.Widget
	err    error
}

// unit is the runtime wrapper around one slot's block. It owns the block
// exclusively: Update, Click and Close are only ever called from run.
type unit struct {
	gen    uint64
	pos    int
	spec   *SlotSpec
	logger *slog.Logger

	updates chan<- update
	runCmd  CommandRunner

	clicks chan protocol.ClickEvent
	force  chan struct{}
	// cmdDone is posted by asynchronous click commands with update set.
	cmdDone chan struct{}
}

func newUnit(gen uint64, pos int, spec *SlotSpec, updates chan<- update, runCmd CommandRunner, logger *slog.Logger) *unit {
	return &unit{
		gen:     gen,
		pos:     pos,
		spec:    spec,
		logger:  logger.With("block", spec.Name, "instance", spec.Instance),
		updates: updates,
		runCmd:  runCmd,
		clicks:  make(chan protocol.ClickEvent, clickBuffer),
		force:   make(chan struct{}, 1),
		cmdDone: make(chan struct{}, 1),
	}
}

// wake requests an update without blocking. Requests coalesce.
func (u *unit) wake() {
	select {
	case u.force <- struct{}{}:
	default:
	}
}

// click queues ev without blocking and reports whether it was accepted.
func (u *unit) click(ev protocol.ClickEvent) bool {
	select {
	case u.clicks <- ev:
		return true
	default:
		return false
	}
}

// run drives the unit until ctx is done: build the block, run it until it
// fails, show the error for error_interval, then rebuild from scratch.
func (u *unit) run(ctx context.Context) {
	for {
		u.logger.Debug("block initializing")
		blk, err := u.spec.Type.New(u.spec.Settings, blocks.Env{
			Logger:   u.logger,
			Name:     u.spec.Name,
			Instance: u.spec.Instance,
		})
		if err == nil {
			u.logger.Debug("block running")
			err = u.running(ctx, blk)
			closeBlock(blk, u.logger)
		}
		if ctx.Err() != nil {
			return
		}
		u.logger.Warn("block failed", "error", err, "retry_in", u.spec.ErrorInterval)
		u.erroring(ctx, err)
		if ctx.Err() != nil {
			return
		}
	}
}

func closeBlock(blk blocks.Block, logger *slog.Logger) {
	if c, ok := blk.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Debug("block close failed", "error", err)
		}
	}
}

// running is the Running state. It returns the first fatal error, or
// ctx.Err() on shutdown.
func (u *unit) running(ctx context.Context, blk blocks.Block) error {
	pair, err := widget.CompileFormats(u.spec.FormatFull, u.spec.FormatShort)
	if err != nil {
		return blocks.Fail("format error", err)
	}

	var events <-chan struct{}
	if n, ok := blk.(blocks.Notifier); ok {
		events = n.Events()
	}

	var timer *time.Timer
	var tick <-chan time.Time
	if u.spec.Interval > 0 {
		timer = time.NewTimer(u.spec.Interval)
		defer timer.Stop()
	}

	pending := true
	for {
		if pending {
			pending = false
			if err := u.refresh(ctx, blk, pair); err != nil {
				return err
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(u.spec.Interval)
				tick = timer.C
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			pending = true
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			pending = true
		case <-u.force:
			pending = true
		case <-u.cmdDone:
			pending = true
		case ev := <-u.clicks:
			up, err := u.handleClick(ctx, blk, ev)
			if err != nil {
				if !blocks.Retryable(err) {
					return err
				}
				u.logger.Warn("click handler failed", "error", err)
			}
			pending = pending || up
		}
	}
}

// refresh runs one data-gathering cycle and publishes the result.
func (u *unit) refresh(ctx context.Context, blk blocks.Block, pair widget.FormatPair) error {
	out, err := blk.Update(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if blocks.Retryable(err) {
			u.logger.Warn("block update failed, keeping last output", "error", err)
			return nil
		}
		return err
	}
	w, err := u.render(out, pair)
	if err != nil {
		return blocks.Fail("format error", err)
	}
	u.publish(ctx, update{state: StateRunning, widget: w})
	return nil
}

// render turns a block's output into a widget. Each part becomes one
// fragment; the top-level output is a fragment of its own when it carries
// values or an icon.
func (u *unit) render(out *blocks.Output, pair widget.FormatPair) (widget.Widget, error) {
	if out == nil {
		return widget.Widget{}, nil
	}
	parts := out.Parts
	if out.Values != nil || out.Icon != "" || len(parts) == 0 {
		parts = append([]blocks.Output{{Icon: out.Icon, State: out.State, Values: out.Values}}, parts...)
	}

	var w widget.Widget
	for _, p := range parts {
		if p.Values == nil && p.Icon == "" {
			continue
		}
		full, short := "", ""
		if p.Values != nil {
			var err error
			if full, short, err = pair.Render(p.Values); err != nil {
				return widget.Widget{}, err
			}
		}
		w.Fragments = append(w.Fragments, widget.Fragment{
			Text:      full,
			ShortText: short,
			Icon:      u.spec.Icons.Get(p.Icon),
			State:     p.State,
			MinWidth:  u.spec.MinWidth,
			Align:     u.spec.Align,
		})
		w.State = widget.Max(w.State, p.State)
	}
	return w, nil
}

// handleClick applies the configured click semantics. It reports whether
// the block should update afterwards.
func (u *unit) handleClick(ctx context.Context, blk blocks.Block, ev protocol.ClickEvent) (bool, error) {
	h, bound := u.spec.Clicks[ev.Button]
	update := false

	if bound && h.Cmd != "" {
		env := clickEnv(ev)
		if h.Sync {
			if err := u.runCmd(ctx, h.Cmd, env); err != nil {
				u.logger.Warn("click command failed", "button", ev.Button, "error", err)
			}
			update = h.Update
		} else {
			go func() {
				if err := u.runCmd(ctx, h.Cmd, env); err != nil {
					u.logger.Warn("click command failed", "button", ev.Button, "error", err)
				}
				if h.Update {
					select {
					case u.cmdDone <- struct{}{}:
					default:
					}
				}
			}()
		}
	} else if bound && h.Update {
		update = true
	}

	if !bound || h.Pass {
		if c, ok := blk.(blocks.Clicker); ok {
			up, err := c.Click(ctx, ev)
			if err != nil {
				return update, err
			}
			update = update || up
		}
	}
	return update, nil
}

// erroring is the Erroring state: show the error and wait exactly
// error_interval. Clicks toggle the full message; nothing else wakes it.
func (u *unit) erroring(ctx context.Context, err error) {
	short, full := blocks.Messages(err)
	w := widget.NewError(u.spec.Icons.Get("error"), short, full, false)
	u.publish(ctx, update{state: StateErroring, widget: w, err: err})

	timer := time.NewTimer(u.spec.ErrorInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case <-u.clicks:
			w = w.ToggleFull()
			u.publish(ctx, update{state: StateErroring, widget: w, err: err})
		case <-u.force:
		}
	}
}

func (u *unit) publish(ctx context.Context, up update) {
	up.gen, up.pos = u.gen, u.pos
	select {
	case u.updates <- up:
	case <-ctx.Done():
	}
}
