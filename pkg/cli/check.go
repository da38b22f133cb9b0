package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/barpulse/pkg/preview"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

var (
	checkTimeout      time.Duration
	checkPlaceholders bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and run every block once",
	Long: `Check loads and validates the configuration, builds every block, runs
one update each and prints the result. It exits 2 when the config is
invalid and 1 when any block fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Second, "per-block time limit")
	checkCmd.Flags().BoolVar(&checkPlaceholders, "placeholders", false, "list the placeholders each block's format uses")
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// probeResult is the outcome of one block in a check run.
type probeResult struct {
	spec  scheduler.SlotSpec
	entry protocol.Entry
	err   error
	names []string
}

func runCheck(cmd *cobra.Command, _ []string) error {
	registry := newRegistry()
	path := resolveConfigPath(flags.configPath)
	cfg, err := loadConfig(path, registry)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, flags.verbose, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	all, th, err := specs(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}

	results := make([]probeResult, len(all))
	for i, spec := range all {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		w, err := scheduler.Probe(pctx, spec, logger)
		cancel()
		results[i] = probeResult{
			spec:  spec,
			entry: protocol.Entry{Name: spec.Name, Instance: spec.Instance, Widget: w, Theme: spec.Theme},
			err:   err,
		}
		if checkPlaceholders {
			results[i].names = placeholders(spec)
		}
	}

	out := cmd.OutOrStdout()
	source := path
	if source == "" {
		source = "built-in defaults (preset " + cfg.Preset + ")"
	}
	fmt.Fprintf(out, "config: %s\n\n", source)
	failed := writeResults(out, results, th, colorDepthOf(out))
	if failed > 0 {
		return fmt.Errorf("%d of %d blocks failed", failed, len(results))
	}
	return nil
}

// writeResults prints one row per block and the assembled line. It
// returns the number of failed blocks.
func writeResults(out io.Writer, results []probeResult, th *theme.Theme, depth int) int {
	failed := 0
	entries := make([]protocol.Entry, 0, len(results))
	for _, r := range results {
		id := fmt.Sprintf("%s[%s]", r.spec.Name, r.spec.Instance)
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "  %s %-24s %v\n", failStyle.Render("FAIL"), id, r.err)
			writePlaceholders(out, r.names)
			continue
		}
		text := r.entry.Widget.Text(false)
		if text == "" {
			text = dimStyle.Render("(hidden)")
		}
		fmt.Fprintf(out, "  %s   %-24s %s\n", okStyle.Render("ok"), id, text)
		writePlaceholders(out, r.names)
		entries = append(entries, r.entry)
	}
	if len(entries) > 0 {
		fmt.Fprintf(out, "\n%s\n", protocol.TermLine(entries, th, false, depth))
	}
	return failed
}

func writePlaceholders(out io.Writer, names []string) {
	if len(names) > 0 {
		fmt.Fprintf(out, "       %s\n", dimStyle.Render("uses "+strings.Join(names, ", ")))
	}
}

// placeholders lists the distinct placeholder names of a block's full and
// short formats. Formats that do not compile yield nothing; their FAIL row
// already says why.
func placeholders(spec scheduler.SlotSpec) []string {
	pair, err := widget.CompileFormats(spec.FormatFull, spec.FormatShort)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, name := range append(pair.Full.Placeholders(), pair.Short.Placeholders()...) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// colorDepthOf returns the color depth for w: the terminal's when w is a
// tty, 0 otherwise.
func colorDepthOf(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return 0
	}
	return preview.ColorDepth(termenv.EnvColorProfile())
}
