// Package watch reruns a scan when listing export files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes from one export into one rescan.
const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// Ignore skips events for paths under these directories, e.g. the
	// reports directory the triggered scan writes to.
	Ignore []string
}

// Run watches paths (files or directories, directories recursively) and
// calls trigger after changes to .json files settle. It blocks until ctx is
// done and returns nil on cancellation.
func Run(ctx context.Context, paths []string, opts Options, trigger func(ctx context.Context)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}
	for _, p := range paths {
		if err := addWatch(watcher, p, ignore); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatch(watcher, ev.Name, ignore); err != nil {
						logger.Warn("watch new directory failed", "path", ev.Name, "err", err)
					}
					continue
				}
			}
			if !relevant(ev, ignore) {
				continue
			}
			logger.Debug("listing file changed", "path", ev.Name, "op", ev.Op.String())
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(opts.Debounce, func() { trigger(ctx) })
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "err", err)
		}
	}
}

func relevant(ev fsnotify.Event, ignore []string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
		return false
	}
	return !ignored(ev.Name, ignore)
}

func ignored(path string, ignore []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addWatch adds a file's parent or a directory tree, skipping hidden
// directories and ignored ones.
func addWatch(w *fsnotify.Watcher, root string, ignore []string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || ignored(path, ignore)) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
