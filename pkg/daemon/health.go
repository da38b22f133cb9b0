package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
)

// DefaultHealthInterval is how often the health file is rewritten.
const DefaultHealthInterval = 10 * time.Second

// ProcessInfo identifies the running daemon in health reports.
type ProcessInfo struct {
	Version   string
	PID       int
	StartedAt time.Time
}

// HealthStatus is a snapshot of the daemon and every slot.
type HealthStatus struct {
	Version   string                 `json:"version"`
	PID       int                    `json:"pid"`
	StartedAt time.Time              `json:"started_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Healthy   bool                   `json:"healthy"`
	Erroring  int                    `json:"erroring"`
	Blocks    []scheduler.SlotStatus `json:"blocks"`
}

// NewHealthStatus builds a report. The daemon is healthy when no slot is
// in the error state.
func NewHealthStatus(info ProcessInfo, slots []scheduler.SlotStatus) *HealthStatus {
	st := &HealthStatus{
		Version:   info.Version,
		PID:       info.PID,
		StartedAt: info.StartedAt,
		UpdatedAt: time.Now(),
		Blocks:    slots,
	}
	for _, s := range slots {
		if s.State == scheduler.StateErroring.String() {
			st.Erroring++
		}
	}
	st.Healthy = st.Erroring == 0
	return st
}

// WriteHealthFile writes the health status as indented JSON to path.
// The write is atomic: content goes to a temporary file first, then is
// renamed into place to prevent partial reads.
func WriteHealthFile(path string, status *HealthStatus) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}
	return nil
}

// ReadHealthFile reads and parses the health status JSON from path.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}
	return &status, nil
}

// RunHealthWriter rewrites the health file every interval until ctx is
// done, then removes it. Snapshot failures are logged and skipped.
func RunHealthWriter(ctx context.Context, path string, interval time.Duration, rt Runtime, info ProcessInfo, logger *slog.Logger) error {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	defer os.Remove(path)

	write := func() {
		snapCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		slots, err := rt.Snapshot(snapCtx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("health snapshot failed", "error", err)
			}
			return
		}
		if err := WriteHealthFile(path, NewHealthStatus(info, slots)); err != nil {
			logger.Warn("writing health file failed", "path", path, "error", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	write()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			write()
		}
	}
}
