package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
)

// CommandRunner executes a shell command line with extra environment
// variables. It must return only when the command has finished.
type CommandRunner func(ctx context.Context, cmdline string, env []string) error

// ShellRunner runs cmdline with sh -c. Output is discarded: stdout belongs
// to the bar protocol.
func ShellRunner(ctx context.Context, cmdline string, env []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q: %w", cmdline, err)
	}
	return nil
}

// clickEnv describes a click to a command the way i3blocks scripts expect.
func clickEnv(ev protocol.ClickEvent) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"BLOCK_NAME=" + ev.Name,
		"BLOCK_INSTANCE=" + ev.Instance,
		"BLOCK_BUTTON=" + strconv.Itoa(int(ev.Button)),
		"BLOCK_X=" + f(ev.X),
		"BLOCK_Y=" + f(ev.Y),
		"BLOCK_RELATIVE_X=" + f(ev.RelativeX),
		"BLOCK_RELATIVE_Y=" + f(ev.RelativeY),
		"BLOCK_WIDTH=" + f(ev.Width),
		"BLOCK_HEIGHT=" + f(ev.Height),
	}
}
