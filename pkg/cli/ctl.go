package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/daemon"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
)

var (
	ctlSocket string
	ctlJSON   bool
)

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running barpulse over its socket",
}

var ctlRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update every block now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sendCtl(cmd.OutOrStdout(), "REFRESH")
	},
}

var ctlRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reload the config and rebuild every block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sendCtl(cmd.OutOrStdout(), "RESTART")
	},
}

var ctlSignalCmd = &cobra.Command{
	Use:   "signal N",
	Short: "Update the blocks configured with signal = N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > config.MaxSignal {
			return fmt.Errorf("signal must be a number in 1..%d", config.MaxSignal)
		}
		return sendCtl(cmd.OutOrStdout(), "SIGNAL "+strconv.Itoa(n))
	},
}

var ctlClickCmd = &cobra.Command{
	Use:   "click NAME INSTANCE BUTTON",
	Short: "Deliver a click to a block",
	Long: `Click delivers a synthetic click, as if the bar had reported it. BUTTON is
a number (1-9) or one of left, middle, right, up, down.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := protocol.ParseButton(args[2]); err != nil {
			return err
		}
		return sendCtl(cmd.OutOrStdout(), strings.Join([]string{"CLICK", args[0], args[1], args[2]}, " "))
	},
}

var ctlHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the state of every block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resp, err := daemon.NewIPCClient(ctlSocketPath()).SendCommand("HEALTH")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if ctlJSON {
			fmt.Fprintln(out, resp)
			return nil
		}
		var st daemon.HealthStatus
		if err := json.Unmarshal([]byte(resp), &st); err != nil {
			return fmt.Errorf("decode health: %w", err)
		}
		writeHealth(out, &st)
		if !st.Healthy {
			return fmt.Errorf("%d blocks erroring", st.Erroring)
		}
		return nil
	},
}

func init() {
	ctlCmd.PersistentFlags().StringVar(&ctlSocket, "socket", "", "control socket path (default: ipc_socket from the config)")
	ctlHealthCmd.Flags().BoolVar(&ctlJSON, "json", false, "print the raw JSON response")

	ctlCmd.AddCommand(ctlRefreshCmd, ctlRestartCmd, ctlSignalCmd, ctlClickCmd, ctlHealthCmd)
}

// ctlSocketPath resolves --socket, then the config, then the default.
// A config that fails to load does not stop the control commands.
func ctlSocketPath() string {
	if ctlSocket != "" {
		return expandHome(ctlSocket)
	}
	configured := ""
	if cfg, err := loadConfig(resolveConfigPath(flags.configPath), newRegistry()); err == nil {
		configured = cfg.IPCSocket
	}
	return defaultRuntimePath(configured, "barpulse.sock")
}

func sendCtl(out io.Writer, command string) error {
	if _, err := daemon.NewIPCClient(ctlSocketPath()).SendCommand(command); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func writeHealth(out io.Writer, st *daemon.HealthStatus) {
	fmt.Fprintf(out, "barpulse %s  pid %d  up %s\n",
		st.Version, st.PID, time.Since(st.StartedAt).Round(time.Second))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "BLOCK", "INSTANCE", "STATE", "UPDATES", "ERRORS", "TEXT").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
	for _, b := range st.Blocks {
		text := b.Text
		if b.LastError != "" {
			text = "error: " + b.LastError
		}
		t.Row(strconv.Itoa(b.Position), b.Name, b.Instance, b.State,
			strconv.FormatInt(b.Updates, 10), strconv.FormatInt(b.Errors, 10), text)
	}
	fmt.Fprintln(out, t.Render())
}
