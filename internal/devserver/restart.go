package devserver

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iDestin/rsbuild/internal/errors"
)

// CoordinatorOptions configures the restart coordinator.
type CoordinatorOptions struct {
	// Paths are the configuration-relevant files to watch (env files plus
	// the resolved config file path, when one exists).
	Paths []string

	// Overrides is the original command-line override fragment. It is set
	// once here and read, never mutated, on every restart.
	Overrides map[string]any

	// Debounce coalesces change bursts (default 300ms).
	Debounce time.Duration

	// Restart performs the restart: fire before-restart hooks, tear the
	// current run down, re-resolve with Overrides, and start again.
	Restart func(ctx context.Context, overrides map[string]any) error

	// Logger receives restart advisories.
	Logger Logger
}

// Coordinator watches configuration-relevant files and re-runs the full
// lifecycle when one changes. Restart is best-effort: a failed restart is
// logged and the watch loop stays alive for the next change — the failed
// run's server is already gone, so the process simply has no active dev
// server until a valid change lands.
type Coordinator struct {
	options  CoordinatorOptions
	watcher  *fsnotify.Watcher
	targets  map[string]bool
	mu       sync.Mutex
	closed   bool
	restarts int
}

// NewCoordinator creates a coordinator watching the given files.
func NewCoordinator(options CoordinatorOptions) (*Coordinator, error) {
	if options.Debounce == 0 {
		options.Debounce = 300 * time.Millisecond
	}
	if options.Logger == nil {
		options.Logger = NewConsoleLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		options: options,
		watcher: watcher,
		targets: make(map[string]bool),
	}

	// Watch parent directories: editors often replace files via rename,
	// which drops a watch placed on the file itself.
	dirs := make(map[string]bool)
	for _, path := range options.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		c.targets[filepath.Clean(abs)] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return c, nil
}

// Overrides returns a copy of the retained command-line override fragment.
func (c *Coordinator) Overrides() map[string]any {
	out := make(map[string]any, len(c.options.Overrides))
	for k, v := range c.options.Overrides {
		out[k] = v
	}
	return out
}

// Restarts returns how many restarts have been attempted.
func (c *Coordinator) Restarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarts
}

// Start runs the watch loop until the context is cancelled or the
// coordinator is closed.
func (c *Coordinator) Start(ctx context.Context) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-c.watcher.Events:
			if !ok {
				return nil
			}
			if !c.relevant(event) {
				continue
			}
			// Debounce: restart once per burst.
			if timer == nil {
				timer = time.NewTimer(c.options.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(c.options.Debounce)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return nil
			}
			c.options.Logger.Errorf("watch error: %v", err)

		case <-timerC:
			timer = nil
			timerC = nil
			c.runRestart(ctx)
		}
	}
}

// Close stops the watch loop.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.watcher.Close()
}

// relevant filters events down to changes of the watched files.
func (c *Coordinator) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return c.targets[filepath.Clean(event.Name)]
}

// runRestart performs one restart attempt and keeps the loop alive on
// failure.
func (c *Coordinator) runRestart(ctx context.Context) {
	c.mu.Lock()
	c.restarts++
	c.mu.Unlock()

	c.options.Logger.Logf("Config changed, restarting server...")
	if err := c.options.Restart(ctx, c.Overrides()); err != nil {
		restartErr := errors.FromError(err, errors.CodeRestartFailed)
		c.options.Logger.Errorf("%s", restartErr.Format())
	}
}
