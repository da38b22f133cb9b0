package sysmetrics

import (
	"context"
	"fmt"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
)

// NetSettings are the net block's keys.
type NetSettings struct {
	// Device is the interface name. Empty picks the busiest
	// non-loopback interface on every update.
	Device string `toml:"device"`
}

// Net reports throughput of one network interface.
type Net struct {
	src    source
	device string

	last     psnet.IOCountersStat
	lastTime time.Time
}

func newNet(s blocks.Settings, env blocks.Env, src source) (*Net, error) {
	var cfg NetSettings
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	return &Net{src: src, device: cfg.Device}, nil
}

// Update implements blocks.Block. Speeds are zero on the first update and
// after the counters reset.
func (n *Net) Update(ctx context.Context) (*blocks.Output, error) {
	counters, err := n.src.netIO(ctx)
	if err != nil {
		return nil, blocks.Fail("net", err)
	}
	cur, ok := pickInterface(counters, n.device)
	if !ok {
		return nil, blocks.Fail("net", fmt.Errorf("interface %q not found", n.device))
	}
	now := n.src.now()

	var down, up float64
	if n.last.Name == cur.Name && !n.lastTime.IsZero() {
		if secs := now.Sub(n.lastTime).Seconds(); secs > 0 {
			down = rate(n.last.BytesRecv, cur.BytesRecv, secs)
			up = rate(n.last.BytesSent, cur.BytesSent, secs)
		}
	}
	n.last, n.lastTime = cur, now

	return &blocks.Output{
		Icon: "net",
		Values: format.Values{
			"device":     format.Text(cur.Name),
			"speed_down": format.Float(down).WithUnit(format.UnitBytesPerSecond),
			"speed_up":   format.Float(up).WithUnit(format.UnitBytesPerSecond),
			"total_down": bytes(cur.BytesRecv),
			"total_up":   bytes(cur.BytesSent),
		},
	}, nil
}

func rate(prev, cur uint64, secs float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / secs
}

// pickInterface returns the named interface, or the busiest non-loopback
// one when name is empty.
func pickInterface(counters []psnet.IOCountersStat, name string) (psnet.IOCountersStat, bool) {
	var best psnet.IOCountersStat
	found := false
	for _, c := range counters {
		if name != "" {
			if c.Name == name {
				return c, true
			}
			continue
		}
		if c.Name == "lo" || c.Name == "lo0" {
			continue
		}
		if !found || c.BytesRecv+c.BytesSent > best.BytesRecv+best.BytesSent {
			best, found = c, true
		}
	}
	return best, found
}
