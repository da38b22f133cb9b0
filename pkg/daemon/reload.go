package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.com/tinyland/lab/barpulse/pkg/watch"
)

// WatchConfig restarts rt whenever the config file at path changes. Editors
// that replace the file atomically are handled by the watcher.
func WatchConfig(ctx context.Context, path string, rt Runtime, logger *slog.Logger) error {
	w, err := watch.New([]string{path}, watch.DefaultDebounce, logger)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	logger.Info("watching config for changes", "path", path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Events():
			logger.Info("config changed, restarting", "path", path)
			if err := rt.Restart(); err != nil {
				logger.Warn("restart after config change failed", "error", err)
			}
		}
	}
}
