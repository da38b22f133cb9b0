package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/barpulse/pkg/preview"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the status line in an interactive terminal view",
	Long: `Preview runs the configured blocks and renders the line in the terminal.
Blocks can be clicked with the mouse; r refreshes, R restarts, s toggles the
short texts. Logs go to log_file only, so they do not garble the view.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, _ []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("preview needs a terminal; use \"barpulse run\" for bar output")
	}
	registry := newRegistry()
	path := resolveConfigPath(flags.configPath)
	cfg, err := loadConfig(path, registry)
	if err != nil {
		return err
	}
	// stderr shares the screen with the view, so only log_file gets logs.
	logger, closer, err := newLogger(cfg, flags.verbose, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	initial, th, err := specs(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	b := &bar{path: path, registry: registry, logger: logger, initial: initial}

	sink := preview.NewSink()
	sched, err := scheduler.New(scheduler.Config{
		Build:  b.build(),
		Output: sink,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		m := preview.New(preview.Options{
			Sink:       sink,
			Controller: sched,
			Theme:      th,
			Profile:    termenv.EnvColorProfile(),
		})
		err := preview.Run(gctx, m)
		// Quitting the view ends the scheduler too.
		return errPreviewDone{err}
	})
	err = g.Wait()
	var done errPreviewDone
	if errors.As(err, &done) {
		return done.err
	}
	return err
}

// errPreviewDone carries the view's result out of the group so its exit
// cancels the scheduler.
type errPreviewDone struct{ err error }

func (e errPreviewDone) Error() string {
	if e.err == nil {
		return "preview closed"
	}
	return e.err.Error()
}
