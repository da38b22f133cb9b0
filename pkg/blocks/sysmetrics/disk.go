package sysmetrics

import (
	"context"
	"fmt"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
)

// DiskSettings are the disk_space block's keys. Thresholds apply to the
// used percentage.
type DiskSettings struct {
	Path     string  `toml:"path"`
	Warning  float64 `toml:"warning"`
	Critical float64 `toml:"critical"`
}

// Disk reports usage of the filesystem holding Path.
type Disk struct {
	src    source
	path   string
	levels thresholds
}

func newDisk(s blocks.Settings, env blocks.Env, src source) (*Disk, error) {
	cfg := DiskSettings{Path: "/", Warning: 80, Critical: 95}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	t := thresholds{warning: cfg.Warning, critical: cfg.Critical}
	if err := t.validate(env.Name); err != nil {
		return nil, err
	}
	return &Disk{src: src, path: cfg.Path, levels: t}, nil
}

// Update implements blocks.Block.
func (d *Disk) Update(ctx context.Context) (*blocks.Output, error) {
	usage, err := d.src.diskUsage(ctx, d.path)
	if err != nil {
		return nil, blocks.Fail("disk", fmt.Errorf("%s: %w", d.path, err))
	}
	if isVirtualFS(usage.Fstype) {
		return nil, blocks.Fail("disk", fmt.Errorf("%s is a %s mount", d.path, usage.Fstype))
	}
	return &blocks.Output{
		Icon:  "disk",
		State: d.levels.severity(usage.UsedPercent),
		Values: format.Values{
			"path":       format.Text(d.path),
			"used":       bytes(usage.Used),
			"free":       bytes(usage.Free),
			"total":      bytes(usage.Total),
			"percentage": format.Float(usage.UsedPercent).WithUnit(format.UnitPercent),
		},
	}, nil
}

// isVirtualFS returns true for filesystem types that do not represent real
// storage.
func isVirtualFS(fstype string) bool {
	switch fstype {
	case "devfs", "devtmpfs", "sysfs", "proc", "cgroup", "cgroup2",
		"autofs", "mqueue", "hugetlbfs", "debugfs", "tracefs", "securityfs",
		"pstore", "bpf", "fusectl", "configfs", "rpc_pipefs",
		"nfsd", "map", "devpts":
		return true
	}
	return false
}
