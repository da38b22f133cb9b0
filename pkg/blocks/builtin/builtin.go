// Package builtin wires every block type shipped with barpulse into a
// registry.
package builtin

import (
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/clock"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/custom"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/dbus"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/k8s"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/sysmetrics"
	"gitlab.com/tinyland/lab/barpulse/pkg/blocks/tailscale"
)

// Types returns the built-in block types.
func Types() []blocks.Type {
	types := []blocks.Type{
		clock.Type(),
		custom.Type(),
		dbus.Type(),
		k8s.Type(),
		tailscale.Type(),
	}
	return append(types, sysmetrics.Types()...)
}

// Registry returns a registry holding every built-in type.
func Registry() *blocks.Registry {
	r := blocks.NewRegistry()
	r.MustRegister(Types()...)
	return r
}
