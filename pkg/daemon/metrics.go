package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
)

// Metrics exports scheduler activity to Prometheus. It implements
// scheduler.Observer. A nil *Metrics is a valid no-op observer.
type Metrics struct {
	registry *prometheus.Registry

	updates   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	state     *prometheus.GaugeVec
	lines     prometheus.Counter
	emit      prometheus.Histogram
	clicks    *prometheus.CounterVec
	restarts  prometheus.Counter
	lastState map[string]scheduler.State
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barpulse_block_updates_total",
			Help: "Widgets received from each block.",
		}, []string{"block", "instance"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barpulse_block_errors_total",
			Help: "Transitions of each block into the error state.",
		}, []string{"block", "instance"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "barpulse_block_state",
			Help: "Current runtime state of each block (0 initializing, 1 running, 2 erroring, 3 stopped).",
		}, []string{"block", "instance"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "barpulse_lines_emitted_total",
			Help: "Status lines written to the bar.",
		}),
		emit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "barpulse_emit_duration_seconds",
			Help:    "Time spent serializing and writing one status line.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barpulse_clicks_total",
			Help: "Click events by whether they matched a block.",
		}, []string{"matched"}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "barpulse_restarts_total",
			Help: "Full in-place restarts.",
		}),
		lastState: make(map[string]scheduler.State),
	}
	m.registry.MustRegister(
		m.updates, m.errors, m.state, m.lines, m.emit, m.clicks, m.restarts,
		collectors.NewGoCollector(),
	)
	return m
}

// SlotUpdated implements scheduler.Observer.
func (m *Metrics) SlotUpdated(name, instance string, state scheduler.State) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(name, instance).Inc()
	m.state.WithLabelValues(name, instance).Set(float64(state))
	key := name + "\x00" + instance
	if state == scheduler.StateErroring && m.lastState[key] != scheduler.StateErroring {
		m.errors.WithLabelValues(name, instance).Inc()
	}
	m.lastState[key] = state
}

// LineEmitted implements scheduler.Observer.
func (m *Metrics) LineEmitted(_ int, took time.Duration) {
	if m == nil {
		return
	}
	m.lines.Inc()
	m.emit.Observe(took.Seconds())
}

// ClickRouted implements scheduler.Observer.
func (m *Metrics) ClickRouted(_, _ string, matched bool) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

// Restarted implements scheduler.Observer.
func (m *Metrics) Restarted() {
	if m == nil {
		return
	}
	m.restarts.Inc()
	clear(m.lastState)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("metrics endpoint listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
