// Package watch reports changes to local config files.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watcher observes the parent directories of a set of files.
// Events for other files in those directories are ignored.
type Watcher struct {
	dirs     map[string]map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// New builds a watcher for the given file paths.
// Params: file paths, debounce window (0 means 250ms), and logger.
// Returns: watcher, or error when no path is given.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	dirs := make(map[string]map[string]struct{})
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		dir := filepath.Dir(path)
		if dirs[dir] == nil {
			dirs[dir] = make(map[string]struct{})
		}
		dirs[dir][filepath.Base(path)] = struct{}{}
	}
	if len(dirs) == 0 {
		return nil, errors.New("watch: no files to watch")
	}
	return &Watcher{dirs: dirs, debounce: debounce, logger: logger}, nil
}

// Dirs returns the watched directories in sorted order.
func (w *Watcher) Dirs() []string {
	out := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Run blocks until ctx is done, calling onChange after each debounced burst of changes.
// A broken fsnotify watcher is recreated with jittered exponential backoff.
// Params: context and change callback (never called concurrently with itself).
// Returns: nil once ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := restartBackoffBase
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff = min(backoff*2, restartBackoffMax)
		}
		return wait
	}

	trigger, stop := w.debouncer(ctx, onChange)
	defer stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fsw, err := w.open()
		if err != nil {
			wait := nextWait()
			w.logger.Warn("config watch init failed", "error", err.Error(), "backoff", wait)
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		w.logger.Debug("config watcher started", "dirs", strings.Join(w.Dirs(), ","))
		w.loop(ctx, fsw, trigger)
		_ = fsw.Close()
		if ctx.Err() != nil {
			return nil
		}

		wait := nextWait()
		w.logger.Warn("config watcher stopped; restarting", "backoff", wait)
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

func (w *Watcher) open() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range w.Dirs() {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// loop drains one fsnotify watcher until it breaks or ctx is done.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, trigger func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.logger.Debug("config change detected", "path", event.Name, "op", event.Op.String())
				trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err == nil {
				continue
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("config watch overflow; forcing reload", "error", err.Error())
				trigger()
				continue
			}
			w.logger.Warn("config watch error", "error", err.Error())
			if errors.Is(err, fsnotify.ErrClosed) {
				return
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	files, ok := w.dirs[filepath.Dir(event.Name)]
	if !ok {
		return false
	}
	_, ok = files[filepath.Base(event.Name)]
	return ok
}

// debouncer coalesces triggers into one onChange call per quiet window.
func (w *Watcher) debouncer(ctx context.Context, onChange func(ctx context.Context)) (trigger func(), stop func()) {
	var (
		mu     sync.Mutex
		timer  *time.Timer
		run    sync.Mutex
		closed bool
	)
	trigger = func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() != nil {
				return
			}
			run.Lock()
			defer run.Unlock()
			onChange(ctx)
		})
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		if timer != nil {
			timer.Stop()
		}
	}
	return trigger, stop
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
