// Package cli implements the barpulse commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitConfig = 2
)

// Build metadata, set with -ldflags "-X".
var (
	Version = "0.1.0"
	Commit  = "dev"
	Date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "barpulse",
	Short: "Status line generator for i3bar and swaybar",
	Long: `barpulse runs a set of configured blocks (clock, system metrics, custom
commands, tailscale, kubernetes, D-Bus properties) and writes their output
as an i3bar protocol stream. Clicks reported by the bar are routed back to
the block that was clicked.

Without a subcommand barpulse behaves like "barpulse run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the config file (default: search $XDG_CONFIG_HOME/barpulse)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	addRunFlags(rootCmd)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(ctlCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(themesCmd)
	rootCmd.AddCommand(versionCmd)
}

// configError marks failures caused by the configuration. They exit with
// ExitConfig.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "barpulse: %v\n", err)
	var ce *configError
	if errors.As(err, &ce) {
		return ExitConfig
	}
	return ExitError
}
