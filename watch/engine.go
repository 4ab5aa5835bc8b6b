package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Engine watches a set of root directories, recursively, and delivers
// batches of changed paths after a quiet period — a hand-rolled
// substitute for notify-debouncer-mini (not in this module's
// dependency set), using fsnotify directly plus a reset-on-event
// timer, matching the 250ms window cmd/watch.rs configures.
type Engine struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewEngine creates an Engine and adds a recursive watch on every
// root (each directory under it, individually, since fsnotify has no
// native recursive mode).
func NewEngine(roots []string, debounce time.Duration) (*Engine, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	e := &Engine{watcher: w, debounce: debounce}
	for _, root := range roots {
		if err := e.addRecursive(root); err != nil {
			w.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: a root that vanished mid-walk shouldn't abort the watch
		}
		if d.IsDir() {
			if err := e.watcher.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run blocks, delivering a deduplicated, debounced batch of changed
// paths to onBatch every time the file system goes quiet for the
// debounce window after at least one change. It returns when stop is
// closed or the underlying watcher errors out.
func (e *Engine) Run(stop <-chan struct{}, onBatch func(changed []string)) error {
	defer e.watcher.Close()
	pending := map[string]bool{}
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		pending = map[string]bool{}
		onBatch(changed)
	}

	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-e.watcher.Events:
			if !ok {
				flush()
				return nil
			}
			if ev.Op&(fsnotify.Create) != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					e.addRecursive(ev.Name)
				}
			}
			pending[ev.Name] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(e.debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			flush()
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// RelPaths renders each absolute path in changed relative to root, for
// matching against config-relative glob patterns. A path outside root
// comes out with leading "../" elements, and one filepath.Rel can't
// express is left unchanged; neither matches a pattern under root.
func RelPaths(root string, changed []string) []string {
	out := make([]string, len(changed))
	for i, p := range changed {
		if rel, err := filepath.Rel(root, p); err == nil {
			out[i] = rel
			continue
		}
		out[i] = p
	}
	return out
}

// Close releases the underlying watcher's resources. Run also closes
// the watcher when it returns, so Close matters for an Engine whose
// Run is never started or never returns.
func (e *Engine) Close() error {
	return e.watcher.Close()
}
