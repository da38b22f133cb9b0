// barpulse is a status line generator for i3bar and swaybar.
//
// It runs a configured list of blocks (clock, system metrics, custom
// commands, tailscale, kubernetes, D-Bus properties), merges their output
// into one status line per update and routes the bar's click events back
// to the clicked block.
//
// Usage:
//
//	barpulse [run] [flags]     write the status line on stdout
//	barpulse check             validate the config and run every block once
//	barpulse preview           interactive terminal preview
//	barpulse ctl <command>     control a running instance
//	barpulse themes            list themes, icon sets and presets
//	barpulse version           print version information
package main

import (
	"os"

	"gitlab.com/tinyland/lab/barpulse/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
