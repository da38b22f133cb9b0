// Package scheduler runs configured blocks and merges their output into
// status lines. Every slot gets a runtime unit (its own goroutine) that
// posts widgets over one multiplexed channel; the scheduler goroutine is
// the only writer of the slot array and re-emits the whole line, in slot
// order, after every update.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// DefaultUpdateBufferSize is the capacity of the multiplexed updates
// channel.
const DefaultUpdateBufferSize = 64

// ErrOutput wraps failures to write a status line. They end Run: a bar
// that cannot be written to has no reason to live.
var ErrOutput = errors.New("scheduler: output failed")

var errStopped = errors.New("scheduler: stopped")

// Emitter writes one complete status line. *protocol.Writer implements it.
type Emitter interface {
	Emit(entries []protocol.Entry) error
}

// BuildFunc produces the slot specs. It is called at start and on every
// restart.
type BuildFunc func(ctx context.Context) ([]SlotSpec, error)

// Config configures a Scheduler.
type Config struct {
	Build  BuildFunc
	Output Emitter

	// Clicks is the stream of parsed click events; nil disables clicks.
	Clicks <-chan protocol.ClickEvent

	Logger     *slog.Logger
	Observer   Observer
	RunCommand CommandRunner
}

type slot struct {
	spec   SlotSpec
	unit   *unit
	widget widget.Widget
	state  State

	updates    int64
	errors     int64
	lastUpdate time.Time
	lastError  string
}

type controlKind int

const (
	ctlRefresh controlKind = iota
	ctlRestart
	ctlSignal
	ctlClick
	ctlSnapshot
)

type control struct {
	kind   controlKind
	signal int
	click  protocol.ClickEvent
	reply  chan []SlotStatus
}

// Scheduler owns the slot array and the runtime units.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	updates chan update
	control chan control
	done    chan struct{}

	// Owned by the Run goroutine.
	gen       uint64
	slots     []*slot
	bySignal  map[int][]int
	unitsStop context.CancelFunc
	unitsWG   sync.WaitGroup
}

// New validates cfg and returns a Scheduler ready to Run.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Build == nil || cfg.Output == nil {
		return nil, errors.New("scheduler: Build and Output are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.RunCommand == nil {
		cfg.RunCommand = ShellRunner
	}
	return &Scheduler{
		cfg:     cfg,
		logger:  cfg.Logger,
		updates: make(chan update, DefaultUpdateBufferSize),
		control: make(chan control, 16),
		done:    make(chan struct{}),
	}, nil
}

// Run builds the slots, starts every unit and merges updates until ctx is
// done or output fails. The returned error wraps ErrOutput on output
// failure and is nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)

	specs, err := s.cfg.Build(ctx)
	if err != nil {
		return err
	}
	s.start(ctx, specs)
	defer s.stopUnits()

	clicks := s.cfg.Clicks
	for {
		select {
		case <-ctx.Done():
			return nil

		case up := <-s.updates:
			if up.gen != s.gen {
				continue
			}
			s.apply(up)
			if err := s.emit(); err != nil {
				return err
			}

		case ev, ok := <-clicks:
			if !ok {
				clicks = nil
				continue
			}
			s.route(ev)

		case c := <-s.control:
			switch c.kind {
			case ctlRefresh:
				s.logger.Info("refreshing all blocks")
				for _, sl := range s.slots {
					sl.unit.wake()
				}
			case ctlRestart:
				s.restart(ctx)
			case ctlSignal:
				s.signal(c.signal)
			case ctlClick:
				s.route(c.click)
			case ctlSnapshot:
				c.reply <- s.snapshot()
			}
		}
	}
}

// start builds one unit per spec under a fresh generation.
func (s *Scheduler) start(ctx context.Context, specs []SlotSpec) {
	s.gen++
	unitsCtx, cancel := context.WithCancel(ctx)
	s.unitsStop = cancel

	s.slots = make([]*slot, len(specs))
	s.bySignal = make(map[int][]int)
	for pos := range specs {
		sl := &slot{spec: specs[pos], state: StateInitializing}
		sl.unit = newUnit(s.gen, pos, &sl.spec, s.updates, s.cfg.RunCommand, s.logger)
		s.slots[pos] = sl
		if sl.spec.Signal > 0 {
			s.bySignal[sl.spec.Signal] = append(s.bySignal[sl.spec.Signal], pos)
		}
	}
	for _, sl := range s.slots {
		s.unitsWG.Add(1)
		go func(u *unit) {
			defer s.unitsWG.Done()
			u.run(unitsCtx)
		}(sl.unit)
	}
	s.logger.Debug("scheduler started", "slots", len(s.slots), "generation", s.gen)
}

func (s *Scheduler) stopUnits() {
	if s.unitsStop != nil {
		s.unitsStop()
	}
	s.unitsWG.Wait()
}

// restart tears every unit down and rebuilds all slots. When the build
// fails the previous specs are reused, so a broken config edit cannot take
// the bar down.
func (s *Scheduler) restart(ctx context.Context) {
	specs, err := s.cfg.Build(ctx)
	if err != nil {
		s.logger.Error("restart: rebuild failed, keeping current configuration", "error", err)
		specs = make([]SlotSpec, len(s.slots))
		for i, sl := range s.slots {
			specs[i] = sl.spec
		}
	}
	s.stopUnits()
	s.logger.Info("restarting all blocks", "slots", len(specs))
	s.start(ctx, specs)
	s.cfg.Observer.Restarted()
}

func (s *Scheduler) signal(n int) {
	positions := s.bySignal[n]
	s.logger.Debug("signal received", "signal", n, "slots", len(positions))
	for _, pos := range positions {
		s.slots[pos].unit.wake()
	}
}

// route delivers a click to the one slot matching (name, instance).
// Unmatched clicks are dropped.
func (s *Scheduler) route(ev protocol.ClickEvent) {
	for _, sl := range s.slots {
		if sl.spec.Name != ev.Name || sl.spec.Instance != ev.Instance {
			continue
		}
		s.cfg.Observer.ClickRouted(ev.Name, ev.Instance, true)
		if !sl.unit.click(ev) {
			s.logger.Warn("click dropped, block busy", "block", ev.Name, "instance", ev.Instance)
		}
		return
	}
	s.cfg.Observer.ClickRouted(ev.Name, ev.Instance, false)
	s.logger.Debug("click matched no block", "name", ev.Name, "instance", ev.Instance)
}

func (s *Scheduler) apply(up update) {
	sl := s.slots[up.pos]
	if up.state == StateErroring && sl.state != StateErroring {
		sl.errors++
	}
	sl.widget = up.widget
	sl.state = up.state
	sl.updates++
	sl.lastUpdate = time.Now()
	sl.lastError = ""
	if up.err != nil {
		sl.lastError = up.err.Error()
	}
	s.cfg.Observer.SlotUpdated(sl.spec.Name, sl.spec.Instance, up.state)
}

// emit writes the whole slot array, in slot order.
func (s *Scheduler) emit() error {
	start := time.Now()
	entries := make([]protocol.Entry, len(s.slots))
	for i, sl := range s.slots {
		entries[i] = protocol.Entry{
			Name:     sl.spec.Name,
			Instance: sl.spec.Instance,
			Widget:   sl.widget,
			Theme:    sl.spec.Theme,
		}
	}
	if err := s.cfg.Output.Emit(entries); err != nil {
		s.logger.Error("writing status line failed", "error", err)
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	s.cfg.Observer.LineEmitted(len(entries), time.Since(start))
	return nil
}

func (s *Scheduler) snapshot() []SlotStatus {
	out := make([]SlotStatus, len(s.slots))
	for i, sl := range s.slots {
		out[i] = SlotStatus{
			Position:   i,
			Name:       sl.spec.Name,
			Instance:   sl.spec.Instance,
			State:      sl.state.String(),
			Text:       sl.widget.Text(false),
			Updates:    sl.updates,
			Errors:     sl.errors,
			LastUpdate: sl.lastUpdate,
			LastError:  sl.lastError,
		}
	}
	return out
}

// send queues a control message without blocking the caller for long.
func (s *Scheduler) send(c control) error {
	select {
	case <-s.done:
		return errStopped
	default:
	}
	select {
	case s.control <- c:
		return nil
	case <-s.done:
		return errStopped
	default:
		return errors.New("scheduler: control queue full")
	}
}

// Refresh forces an update of every block.
func (s *Scheduler) Refresh() error { return s.send(control{kind: ctlRefresh}) }

// Restart rebuilds every slot from a fresh Build.
func (s *Scheduler) Restart() error { return s.send(control{kind: ctlRestart}) }

// Signal wakes the slots subscribed to signal number n.
func (s *Scheduler) Signal(n int) error { return s.send(control{kind: ctlSignal, signal: n}) }

// Click routes ev as if it had come from the bar.
func (s *Scheduler) Click(ev protocol.ClickEvent) error {
	return s.send(control{kind: ctlClick, click: ev})
}

// Snapshot returns the current state of every slot.
func (s *Scheduler) Snapshot(ctx context.Context) ([]SlotStatus, error) {
	reply := make(chan []SlotStatus, 1)
	select {
	case s.control <- control{kind: ctlSnapshot, reply: reply}:
	case <-s.done:
		return nil, errStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return nil, errStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
