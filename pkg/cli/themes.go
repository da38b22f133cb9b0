package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

var exportTheme string

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List built-in themes, icon sets and presets",
	Long: `Themes lists the built-in themes with a sample of every state, the icon
sets and the block presets. With --export NAME it prints that theme as a TOML
file to start a custom theme from.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if exportTheme != "" {
			return writeThemeTOML(out, exportTheme)
		}
		writeThemes(out, colorDepthOf(out))
		return nil
	},
}

func init() {
	themesCmd.Flags().StringVar(&exportTheme, "export", "", "print the named theme as TOML")
}

func writeThemeTOML(out io.Writer, name string) error {
	th, err := theme.Load(name, "", nil)
	if err != nil {
		return err
	}
	data, err := theme.SaveToTOML(*th)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func writeThemes(out io.Writer, depth int) {
	fmt.Fprintln(out, "themes:")
	for _, name := range theme.Names() {
		th := theme.Get(name)
		var samples []string
		for _, s := range widget.Severities() {
			samples = append(samples, theme.Colorize(" "+s.String()+" ", th.Colors(s), depth))
		}
		fmt.Fprintf(out, "  %-14s %s\n", name, strings.Join(samples, ""))
	}

	fmt.Fprintln(out, "\nicon sets:")
	for _, name := range theme.IconSetNames() {
		icons, err := theme.LoadIcons(name, "", nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %-14s %d icons\n", name, len(icons.Keys()))
	}

	fmt.Fprintln(out, "\npresets:")
	for _, name := range config.PresetNames() {
		blocks, err := config.PresetBlocks(name)
		if err != nil {
			continue
		}
		types := make([]string, len(blocks))
		for i, b := range blocks {
			types[i] = b.Type
		}
		fmt.Fprintf(out, "  %-14s %s\n", name, strings.Join(types, ", "))
	}
}
