package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/daemon"
	"gitlab.com/tinyland/lab/barpulse/pkg/preview"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
)

type runFlags struct {
	mode     string
	noSocket bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the status line on stdout",
	Long: `Run starts every configured block and writes status lines to stdout.

When stdout is a terminal the output is one colored line per update;
otherwise it is the i3bar JSON protocol and click events are read from
stdin. Use --mode to override the detection.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runOpts.mode, "mode", "auto", "output mode: auto, i3bar or term")
	cmd.Flags().BoolVar(&runOpts.noSocket, "no-socket", false, "do not open the control socket or write the pid file")
}

// outputMode resolves the --mode flag against whether stdout is a tty.
func outputMode(flag string, tty bool) (protocol.Mode, error) {
	switch flag {
	case "i3bar":
		return protocol.ModeI3bar, nil
	case "term":
		return protocol.ModeTerm, nil
	case "", "auto":
		if tty {
			return protocol.ModeTerm, nil
		}
		return protocol.ModeI3bar, nil
	}
	return 0, &configError{fmt.Errorf("unknown --mode %q (want auto, i3bar or term)", flag)}
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := newRegistry()
	path := resolveConfigPath(flags.configPath)
	cfg, err := loadConfig(path, registry)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(cfg, flags.verbose, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	tty := isatty.IsTerminal(os.Stdout.Fd())
	mode, err := outputMode(runOpts.mode, tty)
	if err != nil {
		return err
	}

	// Resolve once up front so a broken config exits before anything is
	// written to the bar.
	initial, th, err := specs(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}

	d := &bar{
		cfg:      cfg,
		path:     path,
		registry: registry,
		logger:   logger,
		mode:     mode,
		theme:    th,
		initial:  initial,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		sockets:  !runOpts.noSocket,
	}
	if mode == protocol.ModeTerm {
		d.depth = preview.ColorDepth(termenv.EnvColorProfile())
	}
	return d.run(ctx)
}

// bar is one running status line process.
type bar struct {
	cfg      *config.Config
	path     string
	registry *blocks.Registry
	logger   *slog.Logger

	mode    protocol.Mode
	theme   *theme.Theme
	depth   int
	initial []scheduler.SlotSpec

	stdin   io.Reader
	stdout  *os.File
	sockets bool
}

// build returns the specs resolved at startup on the first call and
// re-reads the config on every later one.
func (b *bar) build() scheduler.BuildFunc {
	reload := buildFunc(b.path, b.registry, b.logger)
	first := true
	return func(ctx context.Context) ([]scheduler.SlotSpec, error) {
		if first {
			first = false
			return b.initial, nil
		}
		return reload(ctx)
	}
}

func (b *bar) width() func() int {
	if b.mode == protocol.ModeTerm {
		fd := b.stdout.Fd()
		return func() int {
			w, _, err := term.GetSize(fd)
			if err != nil {
				return 0
			}
			return w
		}
	}
	if b.cfg.BarWidth > 0 {
		n := b.cfg.BarWidth
		return func() int { return n }
	}
	return nil
}

func (b *bar) run(ctx context.Context) error {
	writer := protocol.NewWriter(b.stdout, protocol.WriterConfig{
		Mode:       b.mode,
		Theme:      b.theme,
		Width:      b.width(),
		ColorDepth: b.depth,
	})
	if err := writer.Start(); err != nil {
		return err
	}

	var clicks chan protocol.ClickEvent
	if b.mode == protocol.ModeI3bar {
		clicks = make(chan protocol.ClickEvent, 16)
		// A blocked stdin read cannot be interrupted, so the reader lives
		// outside the group and simply dies with the process.
		go func() {
			defer close(clicks)
			if err := protocol.ReadEvents(ctx, b.stdin, clicks, b.logger); err != nil && !errors.Is(err, context.Canceled) {
				b.logger.Warn("click event stream failed", "error", err)
			}
		}()
	}

	var metrics *daemon.Metrics
	observer := scheduler.Observer(nil)
	if b.cfg.MetricsAddr != "" {
		metrics = daemon.NewMetrics()
		observer = metrics
	}

	sched, err := scheduler.New(scheduler.Config{
		Build:    b.build(),
		Output:   writer,
		Clicks:   clicks,
		Logger:   b.logger,
		Observer: observer,
	})
	if err != nil {
		return err
	}

	info := daemon.ProcessInfo{Version: Version, PID: os.Getpid(), StartedAt: time.Now()}
	signals := daemon.ListenSignals(sched, b.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return signals.Run(gctx) })

	if b.sockets {
		if release, ok := b.acquirePID(); ok {
			defer release()
			socket := defaultRuntimePath(b.cfg.IPCSocket, "barpulse.sock")
			srv := daemon.NewIPCServer(socket, daemon.NewController(sched, info), b.logger)
			if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
				b.logger.Warn("control socket unavailable", "error", err)
			} else if err := srv.Start(); err != nil {
				b.logger.Warn("control socket unavailable", "error", err)
			} else {
				g.Go(func() error {
					<-gctx.Done()
					srv.Stop()
					return nil
				})
			}
		}
	}
	if b.cfg.HealthFile != "" {
		path := expandHome(b.cfg.HealthFile)
		g.Go(func() error {
			return daemon.RunHealthWriter(gctx, path, daemon.DefaultHealthInterval, sched, info, b.logger)
		})
	}
	if b.cfg.WatchConfig && b.path != "" {
		g.Go(func() error { return daemon.WatchConfig(gctx, b.path, sched, b.logger) })
	}
	if metrics != nil {
		g.Go(func() error { return metrics.Serve(gctx, b.cfg.MetricsAddr, b.logger) })
	}

	b.logger.Info("barpulse started", "version", Version, "blocks", len(b.initial), "config", b.path)
	err = g.Wait()
	b.logger.Info("barpulse stopped")
	return err
}

// acquirePID claims the pid file. A second bar on the same runtime dir is
// allowed to run, just without the control socket.
func (b *bar) acquirePID() (release func(), ok bool) {
	path := defaultRuntimePath(b.cfg.PIDFile, "barpulse.pid")
	if err := daemon.AcquirePID(path); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			b.logger.Warn("another barpulse owns the control socket, running without it", "pid_file", path)
		} else {
			b.logger.Warn("cannot write pid file, running without control socket", "error", err)
		}
		return nil, false
	}
	return func() {
		if err := daemon.ReleasePID(path); err != nil {
			b.logger.Warn("removing pid file failed", "error", err)
		}
	}, true
}
