// Package clock provides the time block. It renders the current time with a
// strftime layout and wakes itself on second (or minute) boundaries, so the
// displayed time never lags behind the wall clock.
package clock

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
)

// DefaultTimeFormat is used when no time_format is configured.
const DefaultTimeFormat = "%a %d/%m %R"

// Settings are the time block's own keys.
type Settings struct {
	// TimeFormat is a strftime layout.
	TimeFormat string `toml:"time_format"`

	// Timezone is an IANA zone name; empty means local time.
	Timezone string `toml:"timezone"`

	// Timezones are additional zones cycled through by clicking.
	Timezones []string `toml:"timezones"`
}

// Type returns the registrable time block type.
func Type() blocks.Type {
	return blocks.Type{
		Name:          "time",
		New:           New,
		DefaultFormat: "{time}",
	}
}

// Block is the time block.
type Block struct {
	layout string
	zones  []*time.Location
	now    func() time.Time

	mu   sync.Mutex
	zone int

	events chan struct{}
	stop   chan struct{}
	once   sync.Once
}

// New builds a time block from its settings.
func New(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
	b, err := newWithClock(s, env, time.Now)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func newWithClock(s blocks.Settings, env blocks.Env, now func() time.Time) (*Block, error) {
	cfg := Settings{TimeFormat: DefaultTimeFormat}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}

	names := cfg.Timezones
	if cfg.Timezone != "" {
		names = append([]string{cfg.Timezone}, names...)
	}
	zones := make([]*time.Location, 0, len(names)+1)
	for _, name := range names {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, blocks.Configf(env.Name, "timezone %q: %v", name, err)
		}
		zones = append(zones, loc)
	}
	if len(zones) == 0 {
		zones = append(zones, time.Local)
	}

	b := newBlock(cfg.TimeFormat, zones, now)
	go b.tick(Step(cfg.TimeFormat))
	return b, nil
}

func newBlock(layout string, zones []*time.Location, now func() time.Time) *Block {
	return &Block{
		layout: layout,
		zones:  zones,
		now:    now,
		events: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// Step is the update granularity a layout needs: one second when it shows
// seconds, one minute otherwise.
func Step(layout string) time.Duration {
	for _, verb := range []string{"%S", "%T", "%s", "%c", "%r", "%X", "%f", "%L"} {
		if strings.Contains(layout, verb) {
			return time.Second
		}
	}
	return time.Minute
}

// tick posts an event on every step boundary until Close.
func (b *Block) tick(step time.Duration) {
	for {
		now := b.now()
		timer := time.NewTimer(now.Truncate(step).Add(step).Sub(now))
		select {
		case <-b.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		select {
		case b.events <- struct{}{}:
		default:
		}
	}
}

// Update implements blocks.Block.
func (b *Block) Update(ctx context.Context) (*blocks.Output, error) {
	b.mu.Lock()
	loc := b.zones[b.zone]
	b.mu.Unlock()

	now := b.now().In(loc)
	return blocks.Values(format.Values{
		"time":      format.Datetime(now, b.layout),
		"timezone":  format.Text(loc.String()),
		"timestamp": format.Integer(now.Unix()),
	}), nil
}

// Events implements blocks.Notifier.
func (b *Block) Events() <-chan struct{} { return b.events }

// Click cycles through the configured timezones: forward on left click or
// wheel up, backward on right click or wheel down.
func (b *Block) Click(_ context.Context, ev protocol.ClickEvent) (bool, error) {
	if len(b.zones) < 2 {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch ev.Button {
	case protocol.ButtonLeft, protocol.ButtonWheelUp:
		b.zone = (b.zone + 1) % len(b.zones)
	case protocol.ButtonRight, protocol.ButtonWheelDown:
		b.zone = (b.zone + len(b.zones) - 1) % len(b.zones)
	default:
		return false, nil
	}
	return true, nil
}

// Close stops the ticker.
func (b *Block) Close() error {
	b.once.Do(func() { close(b.stop) })
	return nil
}
