package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned by AcquirePID when a live process holds
// the pid file.
var ErrAlreadyRunning = errors.New("barpulse already running")

// AcquirePID creates a PID file at path with the current process PID.
// It fails if another live process already holds the file. A PID file
// pointing at a dead process is replaced.
//
// The write is atomic: content is written to a temporary file in the same
// directory, then renamed into place.
func AcquirePID(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}

	if existing, err := ReadPID(path); err == nil && existing != os.Getpid() {
		if IsProcessAlive(existing) {
			return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, existing)
		}
		os.Remove(path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write temp PID file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename PID file: %w", err)
	}
	return nil
}

// ReleasePID removes the PID file at the given path.
func ReleasePID(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID from the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	return pid, nil
}

// IsProcessAlive probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
