package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch calls fn with the reloaded file each time path is written or
// replaced, until ctx is done. The parent directory is watched so editors that
// save by renaming are seen too.
func Watch(ctx context.Context, path string, log zerolog.Logger, fn func(FileConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				fc, err := LoadFileConfig(path)
				if err != nil {
					// partial writes show up as parse errors, the next event retries
					log.Debug().Err(err).Str("path", path).Msg("config reload skipped")
					continue
				}
				log.Info().Str("path", path).Msg("config reloaded")
				fn(fc)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
