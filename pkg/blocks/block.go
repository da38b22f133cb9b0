// Package blocks defines the interfaces, registry, and error taxonomy for
// barpulse data sources. Each block type (time, cpu, custom, tailscale, ...)
// lives in a sub-package, implements Block, and is registered with a
// Registry at startup. The scheduler wraps every configured block in a
// runtime unit that drives Update on its interval and on wake-ups.
package blocks

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// Block is the interface all data sources implement.
type Block interface {
	// Update performs one data-gathering cycle. The runtime never calls
	// Update concurrently on the same Block.
	Update(ctx context.Context) (*Output, error)
}

// Notifier is implemented by blocks with an event source (file watch,
// D-Bus signal). A receive on Events wakes the block for an update.
type Notifier interface {
	Events() <-chan struct{}
}

// Clicker is implemented by blocks that react to clicks themselves. The
// returned bool requests an immediate update.
type Clicker interface {
	Click(ctx context.Context, ev protocol.ClickEvent) (update bool, err error)
}

// Output is the result of one Update. Icon is an icon key resolved through
// the active icon set; Parts, when present, become additional fragments
// rendered with the same format.
type Output struct {
	Icon   string
	State  widget.Severity
	Values format.Values
	Parts  []Output
}

// Values is a shorthand for an Output carrying only values.
func Values(vals format.Values) *Output {
	return &Output{Values: vals}
}

// Env carries the runtime context handed to a block factory.
type Env struct {
	Logger   *slog.Logger
	Name     string
	Instance string
}

// Factory constructs a Block from its settings. Factories validate their
// settings and return a *ConfigError when they are unusable.
type Factory func(settings Settings, env Env) (Block, error)

// Type describes a registered block type.
type Type struct {
	// Name is the value of the `block` key in the config.
	Name string

	// New builds a fresh Block. It is called at startup and again every
	// time the block is rebuilt after an error.
	New Factory

	// DefaultFormat is used when the config sets no format.
	DefaultFormat string

	// DefaultInterval is used when the config sets no interval. A zero
	// value with Once unset means update only on events.
	DefaultInterval time.Duration
}
