package daemon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/barpulse/pkg/config"
)

// SigRTMin is the first real-time signal available to applications. glibc
// reserves the two below it for its thread implementation.
const SigRTMin = unix.Signal(34)

// BlockSignal returns the OS signal that wakes blocks subscribed to n.
func BlockSignal(n int) unix.Signal { return SigRTMin + unix.Signal(n) }

// SignalListener maps process signals onto a Runtime:
//
//	SIGUSR1        refresh every block
//	SIGUSR2        restart in place
//	SIGRTMIN+n     wake blocks with signal = n
type SignalListener struct {
	rt     Runtime
	logger *slog.Logger
	ch     chan os.Signal
}

// ListenSignals subscribes to the control signals immediately, so signals
// sent after it returns are never lost. Call Run to dispatch them.
func ListenSignals(rt Runtime, logger *slog.Logger) *SignalListener {
	if logger == nil {
		logger = slog.Default()
	}
	l := &SignalListener{rt: rt, logger: logger, ch: make(chan os.Signal, 8)}
	sigs := []os.Signal{unix.SIGUSR1, unix.SIGUSR2}
	for n := 1; n <= config.MaxSignal; n++ {
		sigs = append(sigs, BlockSignal(n))
	}
	signal.Notify(l.ch, sigs...)
	return l
}

// Run dispatches signals until ctx is done.
func (l *SignalListener) Run(ctx context.Context) error {
	defer signal.Stop(l.ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-l.ch:
			if err := l.dispatch(sig); err != nil {
				l.logger.Warn("signal not delivered", "signal", sig, "error", err)
			}
		}
	}
}

func (l *SignalListener) dispatch(sig os.Signal) error {
	s, ok := sig.(unix.Signal)
	if !ok {
		return nil
	}
	switch {
	case s == unix.SIGUSR1:
		l.logger.Info("SIGUSR1: refreshing all blocks")
		return l.rt.Refresh()
	case s == unix.SIGUSR2:
		l.logger.Info("SIGUSR2: restarting")
		return l.rt.Restart()
	case s > SigRTMin && s <= BlockSignal(config.MaxSignal):
		return l.rt.Signal(int(s - SigRTMin))
	}
	return nil
}
