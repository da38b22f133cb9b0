package tailscale

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"go4.org/mem"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tailcfg"
	"tailscale.com/types/key"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// mockClient is a test double for StatusClient.
type mockClient struct {
	status *ipnstate.Status
	err    error
}

func (m *mockClient) Status(ctx context.Context) (*ipnstate.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.status, m.err
}

// makePeerKey creates a deterministic key.NodePublic for testing.
func makePeerKey(id byte) key.NodePublic {
	var raw [32]byte
	raw[0] = id
	return key.NodePublicFromRaw32(mem.B(raw[:]))
}

// buildTestStatus returns a running tailnet with one self node and three
// peers, two of them online.
func buildTestStatus() *ipnstate.Status {
	lastSeen := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	peer := func(id byte, host string, online bool) *ipnstate.PeerStatus {
		return &ipnstate.PeerStatus{
			ID:           tailcfg.StableNodeID("peer-" + host),
			PublicKey:    makePeerKey(id),
			HostName:     host,
			TailscaleIPs: []netip.Addr{netip.AddrFrom4([4]byte{100, 64, 0, id})},
			Online:       online,
			LastSeen:     lastSeen,
		}
	}
	return &ipnstate.Status{
		BackendState:   "Running",
		MagicDNSSuffix: "tinyland.ts.net",
		CurrentTailnet: &ipnstate.TailnetStatus{
			Name:           "tinyland.example",
			MagicDNSSuffix: "tinyland.ts.net",
		},
		Self: &ipnstate.PeerStatus{
			ID:           "self-stable-id",
			PublicKey:    makePeerKey(0),
			HostName:     "xoxd-bates",
			TailscaleIPs: []netip.Addr{netip.MustParseAddr("100.64.0.1")},
			Online:       true,
		},
		Peer: map[key.NodePublic]*ipnstate.PeerStatus{
			makePeerKey(1): peer(1, "honey", true),
			makePeerKey(2): peer(2, "petting-zoo-mini", true),
			makePeerKey(3): peer(3, "offline-box", false),
		},
	}
}

func render(t *testing.T, out *blocks.Output, tmpl string) string {
	t.Helper()
	s, err := format.Render(tmpl, out.Values)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return s
}

func TestSummarize(t *testing.T) {
	sum := Summarize(buildTestStatus())
	want := Summary{
		BackendState: "Running",
		Self:         "xoxd-bates",
		IP:           "100.64.0.1",
		Tailnet:      "tinyland.example",
		OnlinePeers:  2,
		TotalPeers:   3,
	}
	if sum != want {
		t.Errorf("Summarize = %+v, want %+v", sum, want)
	}
}

func TestSummarizeExitNodeAndFallbacks(t *testing.T) {
	st := buildTestStatus()
	st.CurrentTailnet = nil
	st.Self = nil
	st.TailscaleIPs = []netip.Addr{netip.MustParseAddr("100.64.0.9")}
	st.Peer[makePeerKey(1)].ExitNode = true

	sum := Summarize(st)
	if sum.Tailnet != "tinyland.ts.net" {
		t.Errorf("Tailnet = %q, want MagicDNS suffix", sum.Tailnet)
	}
	if sum.IP != "100.64.0.9" {
		t.Errorf("IP = %q", sum.IP)
	}
	if sum.ExitNode != "honey" {
		t.Errorf("ExitNode = %q", sum.ExitNode)
	}
}

func TestUpdate(t *testing.T) {
	b := &Block{client: &mockClient{status: buildTestStatus()}}
	out, err := b.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := render(t, out, "{online:1}/{total:1} {tailnet}"); got != "2/3 tinyland.example" {
		t.Errorf("rendered %q", got)
	}
	if out.State != widget.Idle || out.Icon != "tailscale" {
		t.Errorf("state/icon = %v/%q", out.State, out.Icon)
	}
}

func TestUpdateStates(t *testing.T) {
	stopped := buildTestStatus()
	stopped.BackendState = "Stopped"
	exit := buildTestStatus()
	exit.Peer[makePeerKey(2)].ExitNode = true

	tests := []struct {
		name string
		st   *ipnstate.Status
		want widget.Severity
	}{
		{"stopped", stopped, widget.Warning},
		{"exit node", exit, widget.Good},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Block{client: &mockClient{status: tt.st}}
			out, err := b.Update(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if out.State != tt.want {
				t.Errorf("state = %v, want %v", out.State, tt.want)
			}
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	b := &Block{client: &mockClient{err: errors.New("dial unix /var/run/tailscale/tailscaled.sock: connect: no such file")}}
	_, err := b.Update(context.Background())
	if !blocks.Retryable(err) {
		t.Errorf("daemon unreachable should be retryable: %v", err)
	}

	b = &Block{client: &mockClient{}}
	_, err = b.Update(context.Background())
	if err == nil || blocks.Retryable(err) {
		t.Errorf("nil status error = %v", err)
	}
}

func TestUpdateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Block{client: &mockClient{status: buildTestStatus()}}
	if _, err := b.Update(ctx); err == nil {
		t.Error("Update with cancelled context should fail")
	}
}

func TestNewDecodesSocket(t *testing.T) {
	blk, err := New(blocks.Settings{"socket": "/tmp/ts.sock"}, blocks.Env{Name: "tailscale"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lc, ok := blk.(*Block).client.(*localClient)
	if !ok || lc.socketPath != "/tmp/ts.sock" {
		t.Errorf("client = %#v", blk.(*Block).client)
	}
	if _, err := New(blocks.Settings{"sock": "/x"}, blocks.Env{Name: "tailscale"}); err == nil {
		t.Error("unknown key accepted")
	}
}
