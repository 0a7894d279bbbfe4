package state

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events an editor or an atomic
// rename produces.
const DefaultWatchDebounce = 100 * time.Millisecond

// Watch calls onChange with the freshly loaded song after each change to the
// snapshot settles. It blocks until ctx is done. The parent directory is
// watched so replacement by rename is seen. Files that fail to decode are
// logged and skipped, and writes that leave the content unchanged (including
// the store's own saves) are ignored.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, onChange func(*Song)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	path := s.path

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	slog.Info("watching session snapshot", "path", path)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("snapshot watcher error", "error", err)
		case <-timer.C:
			changed, err := s.Changed()
			if err == nil && !changed {
				continue
			}
			song, err := s.Load()
			if err != nil {
				slog.Warn("ignoring unreadable snapshot", "path", path, "error", err)
				continue
			}
			slog.Info("session snapshot changed", "path", path, "tracks", len(song.tracks))
			onChange(song)
		}
	}
}
