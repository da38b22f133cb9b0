package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
)

// fakeRuntime records every call for assertions.
type fakeRuntime struct {
	mu        sync.Mutex
	refreshes int
	restarts  int
	signals   []int
	clicks    []protocol.ClickEvent
	slots     []scheduler.SlotStatus
	snapErr   error
	calls     chan string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{calls: make(chan string, 64)}
}

func (f *fakeRuntime) note(call string) {
	select {
	case f.calls <- call:
	default:
	}
}

func (f *fakeRuntime) Refresh() error {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	f.note("refresh")
	return nil
}

func (f *fakeRuntime) Restart() error {
	f.mu.Lock()
	f.restarts++
	f.mu.Unlock()
	f.note("restart")
	return nil
}

func (f *fakeRuntime) Signal(n int) error {
	f.mu.Lock()
	f.signals = append(f.signals, n)
	f.mu.Unlock()
	f.note("signal")
	return nil
}

func (f *fakeRuntime) Click(ev protocol.ClickEvent) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, ev)
	f.mu.Unlock()
	f.note("click")
	return nil
}

func (f *fakeRuntime) Snapshot(context.Context) ([]scheduler.SlotStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.slots, nil
}

// waitCall blocks until the runtime records want or the timeout expires.
func (f *fakeRuntime) waitCall(want string, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case got := <-f.calls:
			if got == want {
				return nil
			}
		case <-deadline:
			return errors.New("timed out waiting for " + want)
		}
	}
}

func sampleSlots() []scheduler.SlotStatus {
	return []scheduler.SlotStatus{
		{Position: 0, Name: "cpu", Instance: "0", State: scheduler.StateRunning.String(), Text: "12%"},
		{Position: 1, Name: "time", Instance: "1", State: scheduler.StateErroring.String(), Text: "error", LastError: "boom"},
	}
}
