// Package sysmetrics provides the host metric blocks: cpu, memory, load,
// disk_space, uptime and net. It uses gopsutil to gather data on both
// Darwin and Linux without /proc dependencies.
package sysmetrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// Default polling intervals.
const (
	FastInterval = 2 * time.Second
	SlowInterval = 30 * time.Second
)

// source is the set of gopsutil calls the blocks make. Tests replace it.
type source struct {
	cpuPercent    func(ctx context.Context) ([]float64, error)
	cpuInfo       func(ctx context.Context) ([]cpu.InfoStat, error)
	cpuCount      func(ctx context.Context) (int, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	swapMemory    func(ctx context.Context) (*mem.SwapMemoryStat, error)
	loadAvg       func(ctx context.Context) (*load.AvgStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	uptime        func(ctx context.Context) (uint64, error)
	netIO         func(ctx context.Context) ([]psnet.IOCountersStat, error)
	now           func() time.Time
}

func hostSource() source {
	return source{
		cpuPercent: func(ctx context.Context) ([]float64, error) {
			// Interval 0 compares against the previous call.
			return cpu.PercentWithContext(ctx, 0, true)
		},
		cpuInfo: cpu.InfoWithContext,
		cpuCount: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
		virtualMemory: mem.VirtualMemoryWithContext,
		swapMemory:    mem.SwapMemoryWithContext,
		loadAvg:       load.AvgWithContext,
		diskUsage:     disk.UsageWithContext,
		uptime:        host.UptimeWithContext,
		netIO: func(ctx context.Context) ([]psnet.IOCountersStat, error) {
			return psnet.IOCountersWithContext(ctx, true)
		},
		now: time.Now,
	}
}

// Types returns every block type in this package.
func Types() []blocks.Type {
	return []blocks.Type{
		{Name: "cpu", New: factory(newCPU), DefaultFormat: "{utilization}", DefaultInterval: FastInterval},
		{Name: "memory", New: factory(newMemory), DefaultFormat: "{mem_used}/{mem_total}", DefaultInterval: FastInterval},
		{Name: "load", New: factory(newLoad), DefaultFormat: "{1m}", DefaultInterval: FastInterval},
		{Name: "disk_space", New: factory(newDisk), DefaultFormat: "{free}", DefaultInterval: SlowInterval},
		{Name: "uptime", New: factory(newUptime), DefaultFormat: "{text}", DefaultInterval: SlowInterval},
		{Name: "net", New: factory(newNet), DefaultFormat: "{speed_down;K} {speed_up;K}", DefaultInterval: FastInterval},
	}
}

// factory adapts a constructor taking a source to blocks.Factory.
func factory[B blocks.Block](fn func(blocks.Settings, blocks.Env, source) (B, error)) blocks.Factory {
	return func(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
		b, err := fn(s, env, hostSource())
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// thresholds maps a reading to a severity. A zero level is disabled.
type thresholds struct {
	info, warning, critical float64
}

func (t thresholds) severity(v float64) widget.Severity {
	switch {
	case t.critical > 0 && v >= t.critical:
		return widget.Critical
	case t.warning > 0 && v >= t.warning:
		return widget.Warning
	case t.info > 0 && v >= t.info:
		return widget.Info
	}
	return widget.Idle
}

func (t thresholds) validate(block string) error {
	if t.critical > 0 && t.warning > t.critical {
		return blocks.Configf(block, "warning (%g) is above critical (%g)", t.warning, t.critical)
	}
	return nil
}

// --- cpu ---

// CPUSettings are the cpu block's keys. Thresholds are percentages.
type CPUSettings struct {
	Info     float64 `toml:"info"`
	Warning  float64 `toml:"warning"`
	Critical float64 `toml:"critical"`
}

// CPU reports utilization, frequency and a per-core bar chart.
type CPU struct {
	src    source
	levels thresholds
}

func newCPU(s blocks.Settings, env blocks.Env, src source) (*CPU, error) {
	cfg := CPUSettings{Info: 30, Warning: 60, Critical: 90}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	t := thresholds{cfg.Info, cfg.Warning, cfg.Critical}
	if err := t.validate(env.Name); err != nil {
		return nil, err
	}
	return &CPU{src: src, levels: t}, nil
}

// Update implements blocks.Block.
func (c *CPU) Update(ctx context.Context) (*blocks.Output, error) {
	perCore, err := c.src.cpuPercent(ctx)
	if err != nil {
		return nil, blocks.Fail("cpu", err)
	}
	var total float64
	for _, pct := range perCore {
		total += pct
	}
	if len(perCore) > 0 {
		total /= float64(len(perCore))
	}

	// Frequency is best effort; some virtual machines do not expose it.
	var mhz float64
	if infos, err := c.src.cpuInfo(ctx); err == nil && len(infos) > 0 {
		for _, info := range infos {
			mhz += info.Mhz
		}
		mhz /= float64(len(infos))
	}

	return &blocks.Output{
		Icon:  "cpu",
		State: c.levels.severity(total),
		Values: format.Values{
			"utilization": format.Float(total).WithUnit(format.UnitPercent),
			"frequency":   format.Float(mhz * 1e6).WithUnit(format.UnitHertz),
			"barchart":    format.Text(barchart(perCore)),
			"cores":       format.Integer(int64(len(perCore))),
		},
	}, nil
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// barchart draws one vertical bar per core.
func barchart(perCore []float64) string {
	var b strings.Builder
	for _, pct := range perCore {
		i := int(pct / 100 * float64(len(sparks)))
		if i >= len(sparks) {
			i = len(sparks) - 1
		}
		if i < 0 {
			i = 0
		}
		b.WriteRune(sparks[i])
	}
	return b.String()
}

// --- memory ---

// MemorySettings are the memory block's keys. Thresholds apply to the
// used percentage.
type MemorySettings struct {
	Warning  float64 `toml:"warning"`
	Critical float64 `toml:"critical"`
}

// Memory reports physical and swap memory.
type Memory struct {
	src    source
	levels thresholds
}

func newMemory(s blocks.Settings, env blocks.Env, src source) (*Memory, error) {
	cfg := MemorySettings{Warning: 80, Critical: 95}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	t := thresholds{warning: cfg.Warning, critical: cfg.Critical}
	if err := t.validate(env.Name); err != nil {
		return nil, err
	}
	return &Memory{src: src, levels: t}, nil
}

// Update implements blocks.Block.
func (m *Memory) Update(ctx context.Context) (*blocks.Output, error) {
	vm, err := m.src.virtualMemory(ctx)
	if err != nil {
		return nil, blocks.Fail("memory", err)
	}
	vals := format.Values{
		"mem_total":          bytes(vm.Total),
		"mem_used":           bytes(vm.Used),
		"mem_available":      bytes(vm.Available),
		"mem_used_percents":  format.Float(vm.UsedPercent).WithUnit(format.UnitPercent),
		"swap_total":         bytes(0),
		"swap_used":          bytes(0),
		"swap_used_percents": format.Float(0).WithUnit(format.UnitPercent),
	}
	// Swap might not be available; that is not an error.
	if sw, err := m.src.swapMemory(ctx); err == nil && sw.Total > 0 {
		vals["swap_total"] = bytes(sw.Total)
		vals["swap_used"] = bytes(sw.Used)
		vals["swap_used_percents"] = format.Float(sw.UsedPercent).WithUnit(format.UnitPercent)
	}
	return &blocks.Output{Icon: "memory", State: m.levels.severity(vm.UsedPercent), Values: vals}, nil
}

// bytes is a byte count, scaled to a readable prefix when rendered.
func bytes(n uint64) format.Value {
	return format.Float(float64(n)).WithUnit(format.UnitBytes)
}

// --- load ---

// LoadSettings are the load block's keys. Thresholds are compared with the
// one minute average divided by the number of logical CPUs.
type LoadSettings struct {
	Info     float64 `toml:"info"`
	Warning  float64 `toml:"warning"`
	Critical float64 `toml:"critical"`
}

// Load reports the load averages.
type Load struct {
	src    source
	levels thresholds
	cores  int
}

func newLoad(s blocks.Settings, env blocks.Env, src source) (*Load, error) {
	cfg := LoadSettings{Info: 0.3, Warning: 0.6, Critical: 0.9}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	t := thresholds{cfg.Info, cfg.Warning, cfg.Critical}
	if err := t.validate(env.Name); err != nil {
		return nil, err
	}
	return &Load{src: src, levels: t}, nil
}

// Update implements blocks.Block.
func (l *Load) Update(ctx context.Context) (*blocks.Output, error) {
	if l.cores == 0 {
		n, err := l.src.cpuCount(ctx)
		if err != nil || n <= 0 {
			n = 1
		}
		l.cores = n
	}
	avg, err := l.src.loadAvg(ctx)
	if err != nil {
		return nil, blocks.Fail("load", err)
	}
	return &blocks.Output{
		Icon:  "load",
		State: l.levels.severity(avg.Load1 / float64(l.cores)),
		Values: format.Values{
			"1m":  format.Float(avg.Load1),
			"5m":  format.Float(avg.Load5),
			"15m": format.Float(avg.Load15),
		},
	}, nil
}

// --- uptime ---

// Uptime reports the time since boot.
type Uptime struct {
	src source
}

func newUptime(s blocks.Settings, env blocks.Env, src source) (*Uptime, error) {
	var cfg struct{}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	return &Uptime{src: src}, nil
}

// Update implements blocks.Block.
func (u *Uptime) Update(ctx context.Context) (*blocks.Output, error) {
	secs, err := u.src.uptime(ctx)
	if err != nil {
		return nil, blocks.Fail("uptime", err)
	}
	return &blocks.Output{
		Icon: "uptime",
		Values: format.Values{
			"uptime": format.Integer(int64(secs)).WithUnit(format.UnitSeconds),
			"text":   format.Text(humanDuration(time.Duration(secs) * time.Second)),
		},
	}, nil
}

// humanDuration renders d as its two most significant units, e.g. "3d 4h".
func humanDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	mins := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
