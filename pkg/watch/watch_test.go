package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
	}
}

func noEvent(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
		t.Fatal("unexpected event")
	case <-time.After(d):
	}
}

func TestWriteTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New([]string{path}, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, w)
}

func TestAtomicRenameTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New([]string{path}, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tmp := filepath.Join(dir, ".config.toml.swp")
	if err := os.WriteFile(tmp, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, w)
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched")
	w, err := New([]string{path}, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	noEvent(t, w, 100*time.Millisecond)
}

func TestBurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "burst")
	w, err := New([]string{path}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for i := 0; i < 10; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	waitEvent(t, w)
	noEvent(t, w, 150*time.Millisecond)
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil, 0, nil); err == nil {
		t.Error("New accepted no paths")
	}
	if _, err := New([]string{"/nonexistent-dir-for-watch/file"}, 0, nil); err == nil {
		t.Error("New accepted a path in a missing directory")
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "f")}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
