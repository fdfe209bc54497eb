// Package watch notifies when a single file changes on disk.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors and copy tools.
const DefaultDebounce = 500 * time.Millisecond

// ErrNoPath is returned when New is given an empty path.
var ErrNoPath = errors.New("watch: empty path")

// Watcher reports create, write, rename and remove events for one file.
// It watches the parent directory so that atomic replace (write temp then
// rename) is seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// New starts watching path. Debounce <= 0 selects DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{fs: fw, path: abs, debounce: debounce, logger: logger}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run blocks until ctx is done or the watcher is closed, calling onChange
// once per quiet period after the file changes. onChange runs on the Run
// goroutine, so a slow callback delays later notifications instead of
// overlapping them.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true
		case <-timer.C:
			pending = false
			onChange(ctx)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "path", w.path, "err", err)
		}
	}
}

// Close stops the watcher. Run returns nil afterwards.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}
