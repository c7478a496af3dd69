package sound

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the library at path whenever the file changes and passes
// each successfully loaded library to onReload. Editors often replace files
// rather than writing them, so the parent directory is watched. Watch
// returns when ctx is done.
func Watch(ctx context.Context, path string, onReload func(*Library), log zerolog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, file := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Debug().Str("dir", dir).Str("file", file).Msg("sound library watcher started")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("sound library watch error")
		case <-pending:
			pending = nil
			lib, err := LoadLibrary(path)
			if err != nil {
				log.Warn().Err(err).Msg("sound library reload failed")
				continue
			}
			log.Info().Int("sounds", lib.Len()).Msg("sound library reloaded")
			onReload(lib)
		}
	}
}
