package scheduler

import "time"

// State is the lifecycle state of a slot's runtime unit.
type State int

const (
	StateInitializing State = iota
	StateRunning
	StateErroring
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateErroring:
		return "erroring"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SlotStatus is a point-in-time copy of one slot, for health reports and
// the control socket.
type SlotStatus struct {
	Position   int       `json:"position"`
	Name       string    `json:"name"`
	Instance   string    `json:"instance"`
	State      string    `json:"state"`
	Text       string    `json:"text"`
	Updates    int64     `json:"updates"`
	Errors     int64     `json:"errors"`
	LastUpdate time.Time `json:"last_update,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}
