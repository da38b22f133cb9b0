package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
)

// Runtime is the part of the scheduler the daemon drives.
// *scheduler.Scheduler implements it.
type Runtime interface {
	Refresh() error
	Restart() error
	Signal(n int) error
	Click(ev protocol.ClickEvent) error
	Snapshot(ctx context.Context) ([]scheduler.SlotStatus, error)
}

// Controller answers control socket commands against a Runtime.
type Controller struct {
	rt      Runtime
	info    ProcessInfo
	timeout time.Duration
}

// NewController returns an IPCHandler for rt.
func NewController(rt Runtime, info ProcessInfo) *Controller {
	return &Controller{rt: rt, info: info, timeout: 2 * time.Second}
}

var okResponse = `{"ok":true}`

// HandleCommand implements IPCHandler.
func (c *Controller) HandleCommand(cmd string, args map[string]string) (string, error) {
	switch cmd {
	case "REFRESH":
		return okResponse, c.rt.Refresh()

	case "RESTART":
		return okResponse, c.rt.Restart()

	case "SIGNAL":
		n, err := strconv.Atoi(args["signal"])
		if err != nil || n < 1 || n > config.MaxSignal {
			return "", fmt.Errorf("signal must be 1..%d, got %q", config.MaxSignal, args["signal"])
		}
		return okResponse, c.rt.Signal(n)

	case "CLICK":
		button, err := protocol.ParseButton(args["button"])
		if err != nil {
			return "", err
		}
		ev := protocol.ClickEvent{Name: args["name"], Instance: args["instance"], Button: button}
		return okResponse, c.rt.Click(ev)

	case "HEALTH":
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		slots, err := c.rt.Snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("snapshot: %w", err)
		}
		data, err := json.Marshal(NewHealthStatus(c.info, slots))
		if err != nil {
			return "", err
		}
		return string(data), nil

	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}
