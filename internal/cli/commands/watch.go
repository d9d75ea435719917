package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/pkg/adapters/postgres"
)

// watchDebounce is how long the watcher waits for writes to settle.
const watchDebounce = 100 * time.Millisecond

// watchPaths resolves the files behind the given sources.
func watchPaths(sources ...string) ([]string, error) {
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		if postgres.IsURL(src) {
			return nil, fmt.Errorf("cannot watch database URL %s", src)
		}
		path, _ := loader.SplitSource(src)
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		paths = append(paths, abs)
	}
	return paths, nil
}

// watchFiles calls onChange after any of paths is written or replaced, until
// ctx is cancelled. Bursts of events within watchDebounce trigger one call.
// The parent directories are watched so that editors which replace files
// on save are seen.
func watchFiles(ctx context.Context, logger *slog.Logger, paths []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		watched[p] = true
		dir := filepath.Dir(p)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	fire := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			logger.Debug("input changed, re-running")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", slog.Any("error", err))
		}
	}
}
