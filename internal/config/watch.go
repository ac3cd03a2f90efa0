package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file whenever it changes on disk, debouncing
// bursts of writes into a single reload. Grounded on the teacher's
// internal/skills.Manager watch loop (fsnotify.Watcher plus a
// time.AfterFunc debounce timer guarded by its own mutex); generalized
// here to watch a single file rather than a set of skill directories.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Config, error)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WatchOptions configures NewWatcher.
type WatchOptions struct {
	// Debounce coalesces rapid successive writes (default 250ms, matching
	// the teacher's default skill-watch debounce).
	Debounce time.Duration
}

// NewWatcher starts watching path and invokes onChange with the freshly
// reloaded Config (or the reload error) after each debounced change.
// onChange is never called concurrently with itself.
func NewWatcher(ctx context.Context, path string, onChange func(Config, error), opts WatchOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.loop(watchCtx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var mu sync.Mutex
	var callMu sync.Mutex
	var timer *time.Timer
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			callMu.Lock()
			defer callMu.Unlock()
			cfg, err := Load(w.path)
			w.onChange(cfg, err)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher and releases its inotify/kqueue handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
