package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called with the path of a changed log file once its events
// have settled.
type ChangeFunc func(ctx context.Context, path string) error

// Config contains configuration for the file watcher.
type Config struct {
	// Paths are the files or directories to watch.
	Paths []string

	// Debounce is the quiet period after the last event for a file before
	// the callback runs (default: 500ms).
	Debounce time.Duration

	// Extensions is the list of file extensions to watch (e.g., ".log").
	// Empty accepts every file.
	Extensions []string

	// Recursive also watches subdirectories of watched directories.
	Recursive bool

	// SkipHidden ignores files and directories whose name starts with ".".
	SkipHidden bool
}

// ErrAlreadyRunning is returned by Watch when the watcher is active.
var ErrAlreadyRunning = errors.New("watcher already running")

// FileWatcher watches log files and reports each changed file once per
// burst of writes.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *Config
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	active  atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new file watcher.
func New(cfg *Config, logger *slog.Logger) (*FileWatcher, error) {
	if cfg == nil || len(cfg.Paths) == 0 {
		return nil, errors.New("watch: no paths configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Debounce
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  w,
		logger:   logger.With("component", "watch"),
		config:   cfg,
		debounce: NewDebouncer(interval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// for every settled file change. Callback errors are logged and do not stop
// the watcher.
func (fw *FileWatcher) Watch(ctx context.Context, onChange ChangeFunc) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return ErrAlreadyRunning
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	for _, p := range fw.config.Paths {
		if err := fw.addPath(p); err != nil {
			return fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}

	fw.active.Store(true)
	defer fw.active.Store(false)

	fw.logger.Info("file watcher started",
		"paths", fw.config.Paths,
		"recursive", fw.config.Recursive,
		"debounce_ms", fw.debounce.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("file watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			fw.handle(ctx, event, onChange)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handle(ctx context.Context, event fsnotify.Event, onChange ChangeFunc) {
	// New subdirectories join the watch set.
	if fw.config.Recursive && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addDirectory(event.Name); err != nil {
				fw.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !fw.shouldProcessEvent(event) {
		return
	}

	fw.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())

	path := event.Name
	fw.debounce.Trigger(path, func() {
		if err := onChange(ctx, path); err != nil {
			fw.logger.Error("processing changed file failed", "path", path, "error", err)
		}
	})
}

// Running reports whether Watch is receiving events.
func (fw *FileWatcher) Running() bool {
	return fw.active.Load()
}

// Stop stops the watcher and cancels pending callbacks.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}

	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// addPath adds a file or directory to the watcher.
func (fw *FileWatcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fw.addDirectory(path)
	}
	return fw.watcher.Add(path)
}

// addDirectory adds a directory, and its subdirectories when recursive.
func (fw *FileWatcher) addDirectory(dir string) error {
	if !fw.config.Recursive {
		return fw.watcher.Add(dir)
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.config.SkipHidden && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		fw.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// shouldProcessEvent reports whether event signals new content in a log
// file. Removals, renames and permission changes are ignored.
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if fw.config.SkipHidden && strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return HasExtension(event.Name, fw.config.Extensions)
}

// HasExtension reports whether path ends in one of exts, ignoring case.
// An empty list accepts every path.
func HasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
