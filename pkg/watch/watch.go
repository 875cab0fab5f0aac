// Package watch reloads the graph when its input document changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Reloader replaces the stored graph from an input document
type Reloader interface {
	Reload(ctx context.Context, path, trigger string) (*derive.LoadReport, error)
}

// Watcher triggers a reload after the input document is written or
// created, which covers saves that rename a temporary file into place.
// Bursts of events inside the debounce window collapse into one reload.
type Watcher struct {
	path     string
	debounce time.Duration
	reloader Reloader
	logger   logging.Logger
	fsw      *fsnotify.Watcher

	// reloaded receives the outcome of each reload, if set
	reloaded chan<- error
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the debounce window
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithNotify sends each reload result on ch without blocking
func WithNotify(ch chan<- error) Option {
	return func(w *Watcher) { w.reloaded = ch }
}

// New watches the directory that holds path. The directory is watched rather
// than the file so that editors that save by rename are still seen.
func New(path string, reloader Reloader, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		reloader: reloader,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrDefault(w.logger).With(logging.Component("watch"))
	return w, nil
}

// Run processes file events until ctx is done. It closes the underlying
// watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching input document",
		logging.Path(w.path), logging.Duration("debounce", w.debounce))

	// Armed by each relevant event. Reset drops any pending expiry.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("input change detected",
				logging.Path(event.Name), logging.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", logging.Error(err))

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) reload(ctx context.Context) {
	report, err := w.reloader.Reload(ctx, w.path, derive.TriggerWatch)
	if err != nil {
		w.logger.Warn("reload after file change failed", logging.Path(w.path), logging.Error(err))
	} else {
		w.logger.Info("graph reloaded after file change",
			logging.LoadID(report.LoadID), logging.Count(report.Vertices))
	}

	if w.reloaded != nil {
		select {
		case w.reloaded <- err:
		default:
		}
	}
}
