// Package watch turns filesystem changes to a set of files into debounced
// wake-up events. It watches each file's parent directory so atomic saves
// (write a temporary file, rename it over the target) are seen too.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of events (editors often write, chmod
// and rename in quick succession) into one wake-up.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger

	events chan struct{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New starts watching paths. A zero debounce uses DefaultDebounce.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fs:       fsw,
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		logger:   logger,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events receives one value per debounced burst of changes.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("watched file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-fire:
			fire = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	_, ok := w.files[filepath.Clean(ev.Name)]
	return ok
}
