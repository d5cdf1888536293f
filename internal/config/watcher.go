package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch watches a single file and invokes onChange after writes,
// debounced so editors that write in bursts trigger one reload.
// Blocks until the context is cancelled.
func Watch(ctx context.Context, path string, debounce time.Duration, logger zerolog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// the watch when pointed at the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("file watcher error")
		case <-timerC:
			onChange()
		}
	}
}
