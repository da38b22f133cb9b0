package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchConfigRestartsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("theme = \"plain\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rt := newFakeRuntime()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchConfig(ctx, path, rt, discardLogger()) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("theme = \"solarized\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := rt.waitCall("restart", 3*time.Second); err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchConfig: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WatchConfig did not return")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	err := WatchConfig(context.Background(), "/nonexistent/dir/config.toml", newFakeRuntime(), discardLogger())
	if err == nil {
		t.Error("expected error for unwatchable path")
	}
}
