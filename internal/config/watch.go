package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultWatchDebounce = 500 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result to onChange. Bursts of events within debounce collapse into one
// reload. Watch blocks until ctx ends.
//
// The parent directory is watched rather than the file itself so editors that
// save by rename are still observed.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(*Config)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounceTimer := time.NewTimer(debounce)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-debounceTimer.C:
			cfg, err := LoadFrom(path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					logger.Warn("config reload failed", "path", path, "error", err)
				}
				continue
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		}
	}
}
