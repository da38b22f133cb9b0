package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireAndReleasePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "barpulse.pid")
	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}
	// Re-acquiring our own pid file is allowed.
	if err := AcquirePID(path); err != nil {
		t.Errorf("re-acquire: %v", err)
	}
	if err := ReleasePID(path); err != nil {
		t.Fatalf("ReleasePID: %v", err)
	}
	if err := ReleasePID(path); err != nil {
		t.Errorf("second ReleasePID: %v", err)
	}
}

func TestAcquirePIDHeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barpulse.pid")
	// pid 1 is always alive.
	os.WriteFile(path, []byte("1"), 0o644)
	err := AcquirePID(path)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("AcquirePID = %v, want ErrAlreadyRunning", err)
	}
}

func TestAcquirePIDReplacesStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barpulse.pid")
	// Far above any default pid_max.
	os.WriteFile(path, []byte(strconv.Itoa(1<<30)), 0o644)
	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID: %v", err)
	}
	if pid, _ := ReadPID(path); pid != os.Getpid() {
		t.Errorf("pid = %d", pid)
	}
}

func TestReadPIDGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barpulse.pid")
	os.WriteFile(path, []byte("nope"), 0o644)
	if _, err := ReadPID(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	if IsProcessAlive(0) || IsProcessAlive(-5) {
		t.Error("non-positive pid reported alive")
	}
}
