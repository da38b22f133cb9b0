// Package tailscale provides the tailscale block: tailnet name, peer counts
// and exit node, read from the local tailscaled daemon via the LocalAPI
// unix socket.
package tailscale

import (
	"context"
	"fmt"
	"time"

	"tailscale.com/ipn/ipnstate"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// DefaultInterval is the polling interval when none is configured.
const DefaultInterval = 10 * time.Second

// StatusClient abstracts the local Tailscale daemon API for testability.
type StatusClient interface {
	Status(ctx context.Context) (*ipnstate.Status, error)
}

// Settings are the tailscale block's keys.
type Settings struct {
	// Socket is an optional custom tailscaled socket path.
	Socket string `toml:"socket"`
}

// Type returns the registrable tailscale block type.
func Type() blocks.Type {
	return blocks.Type{
		Name:            "tailscale",
		New:             New,
		DefaultFormat:   "{online:1}/{total:1}",
		DefaultInterval: DefaultInterval,
	}
}

// Block shows the state of the local tailnet.
type Block struct {
	client StatusClient
}

// New builds a tailscale block talking to the local daemon.
func New(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
	var cfg Settings
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	return &Block{client: NewLocalClient(cfg.Socket)}, nil
}

// Summary is the subset of ipnstate.Status the block displays.
type Summary struct {
	BackendState string
	Self         string
	IP           string
	Tailnet      string
	OnlinePeers  int
	TotalPeers   int
	ExitNode     string
}

// Update implements blocks.Block. A daemon that cannot be reached is a
// retryable failure: tailscaled restarts are routine.
func (b *Block) Update(ctx context.Context) (*blocks.Output, error) {
	st, err := b.client.Status(ctx)
	if err != nil {
		return nil, blocks.Retry("tailscale", fmt.Errorf("tailscale status: %w", err))
	}
	if st == nil {
		return nil, blocks.Fail("tailscale", fmt.Errorf("tailscale status: nil response"))
	}
	sum := Summarize(st)

	state := widget.Idle
	switch {
	case sum.BackendState != "Running":
		state = widget.Warning
	case sum.ExitNode != "":
		state = widget.Good
	}
	return &blocks.Output{
		Icon:  "tailscale",
		State: state,
		Values: format.Values{
			"state":     format.Text(sum.BackendState),
			"self":      format.Text(sum.Self),
			"ip":        format.Text(sum.IP),
			"tailnet":   format.Text(sum.Tailnet),
			"online":    format.Integer(int64(sum.OnlinePeers)),
			"total":     format.Integer(int64(sum.TotalPeers)),
			"exit_node": format.Text(sum.ExitNode),
			"connected": format.Flag(sum.BackendState == "Running"),
		},
	}, nil
}

// Summarize reduces an ipnstate.Status to what the bar shows.
func Summarize(st *ipnstate.Status) Summary {
	sum := Summary{BackendState: st.BackendState}
	if st.Self != nil {
		sum.Self = st.Self.HostName
		if len(st.Self.TailscaleIPs) > 0 {
			sum.IP = st.Self.TailscaleIPs[0].String()
		}
	}
	if sum.IP == "" && len(st.TailscaleIPs) > 0 {
		sum.IP = st.TailscaleIPs[0].String()
	}

	// Prefer CurrentTailnet's name, fall back to the MagicDNS suffix.
	sum.Tailnet = st.MagicDNSSuffix
	if st.CurrentTailnet != nil && st.CurrentTailnet.Name != "" {
		sum.Tailnet = st.CurrentTailnet.Name
	}

	for _, pubKey := range st.Peers() {
		ps := st.Peer[pubKey]
		if ps == nil {
			continue
		}
		sum.TotalPeers++
		if ps.Online {
			sum.OnlinePeers++
		}
		if ps.ExitNode {
			sum.ExitNode = ps.HostName
		}
	}
	return sum
}
