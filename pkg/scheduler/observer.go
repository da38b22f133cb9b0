package scheduler

import "time"

// Observer receives runtime events for metrics. Methods are called from
// the scheduler goroutine and must not block.
type Observer interface {
	SlotUpdated(name, instance string, state State)
	LineEmitted(blocks int, took time.Duration)
	ClickRouted(name, instance string, matched bool)
	Restarted()
}

type nopObserver struct{}

func (nopObserver) SlotUpdated(string, string, State) {}
func (nopObserver) LineEmitted(int, time.Duration) {}
func (nopObserver) ClickRouted(string, string, bool) {}
func (nopObserver) Restarted() {}
