// Package watch re-analyzes source files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/codeforge/internal/scanner"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a file must stay unchanged before it is
// re-analyzed.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and triggers analysis.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	scanner   *scanner.Scanner
	debounce  time.Duration
	path      string
	out       io.Writer
	colored   bool
	logger    zerolog.Logger
	callback  func(path string)
	mu        sync.Mutex
	pending   map[string]time.Time
	runMu     sync.Mutex // one callback at a time so output blocks stay whole
}

// Option is a functional option for configuring Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce period. Values <= 0 keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOutput sets where status lines are written.
func WithOutput(out io.Writer, colored bool) Option {
	return func(w *Watcher) {
		w.out = out
		w.colored = colored
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for the directory tree at path.
func NewWatcher(path string, cfg *config.Config, opts ...Option) (*Watcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  DefaultDebounce,
		path:      path,
		out:       os.Stderr,
		logger:    zerolog.Nop(),
		pending:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.scanner = scanner.NewScanner(cfg, scanner.WithLogger(w.logger))
	return w, nil
}

// SetCallback sets the function to call when a file changes.
func (w *Watcher) SetCallback(cb func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = cb
}

// Start watches until ctx is done. Directories excluded by configuration
// are not watched.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug().Str("path", path).Err(err).Msg("skipping unreadable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.path {
			for _, excluded := range w.config.Exclude.Dirs {
				if d.Name() == excluded {
					return filepath.SkipDir
				}
			}
		}
		return w.fsWatcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.status(color.FgCyan, "Watching for changes in %s...", w.path)
	w.status(color.FgCyan, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.status(color.FgRed, "Watch error: %v", err)
		}
	}
}

// handleEvent queues writes and creates of analyzable files. New
// directories are watched as well.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := event.Name
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excludedDir(info.Name()) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Debug().Str("path", path).Err(err).Msg("watch directory failed")
				}
			}
			return
		}
	}

	if w.config.ShouldExclude(path) {
		return
	}
	if ok, err := w.scanner.ScanFile(path); err != nil || !ok {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) excludedDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

// processDebounced processes pending changes after debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending runs the callback for files that have been stable for the
// debounce period.
func (w *Watcher) processPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			continue
		}
		delete(w.pending, path)
		if w.callback != nil {
			go w.runCallback(w.callback, path)
		}
	}
}

func (w *Watcher) runCallback(cb func(string), path string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	relPath, err := filepath.Rel(w.path, path)
	if err != nil {
		relPath = path
	}

	w.status(color.FgYellow, "\nFile changed: %s", relPath)
	_, _ = fmt.Fprintln(w.out, strings.Repeat("-", 40))

	w.logger.Debug().Str("path", path).Msg("re-analyzing")
	cb(path)
}

func (w *Watcher) status(attr color.Attribute, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.colored {
		msg = color.New(attr).Sprint(msg)
	}
	_, _ = fmt.Fprintln(w.out, msg)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the list of watched directories.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}
