package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	applog "focusflow/internal/log"
	"focusflow/internal/ui/preferences"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long the watcher waits after the last change before
// reloading.
const WatchDebounce = 500 * time.Millisecond

// WatchSettings reloads the settings file at path whenever it changes and
// passes the result to onChange. It blocks until ctx is done.
//
// The parent directory is watched rather than the file, so atomic replaces
// keep being observed.
func WatchSettings(ctx context.Context, path string, onChange func(preferences.Settings)) error {
	logger := applog.WithComponent("storage")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	logger.Info().
		Str("event", "settings.watcher_started").
		Str("path", path).
		Msg("watching settings file for changes")

	target := filepath.Clean(path)
	debounce := time.NewTimer(WatchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("event", "settings.watcher_stopped").Msg("settings watcher stopped")
			return nil

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
			logger.Debug().
				Str("event", "settings.file_changed").
				Str("op", event.Op.String()).
				Msg("settings file changed")
			debounce.Reset(WatchDebounce)

		case <-debounce.C:
			settings, err := LoadSettingsFile(path)
			if err != nil {
				logger.Error().
					Err(err).
					Str("event", "settings.reload_failed").
					Msg("automatic settings reload failed")
				continue
			}
			onChange(settings)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().
				Err(err).
				Str("event", "settings.watcher_error").
				Msg("settings watcher error")
		}
	}
}
