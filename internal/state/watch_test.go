package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, SaveSnapshot(path, NewSong(100)))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan *Song, 4)
	done := make(chan error, 1)
	go func() {
		done <- NewStore(path).Watch(ctx, 20*time.Millisecond, func(s *Song) { changed <- s })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)

	next := NewSong(140)
	next.AddTrack("Pads", false, true)
	require.NoError(t, SaveSnapshot(path, next))

	select {
	case song := <-changed:
		assert.Equal(t, 140.0, song.Transport().Tempo)
		require.Len(t, song.Tracks(), 1)
		assert.Equal(t, "Pads", song.Tracks()[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after snapshot change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStoreWatchSkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, SaveSnapshot(path, NewSong(100)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan *Song, 4)
	go NewStore(path).Watch(ctx, 20*time.Millisecond, func(s *Song) { changed <- s })
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("tempo: [unterminated"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("tempo: 90\n"), 0o644))

	select {
	case song := <-changed:
		t.Fatalf("unexpected reload with tempo %v", song.Transport().Tempo)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStoreWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "session.yaml")
	err := NewStore(path).Watch(context.Background(), 0, func(*Song) {})
	assert.Error(t, err)
}

func TestStoreWatchIgnoresOwnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewStore(path)
	_, err := store.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan *Song, 4)
	go store.Watch(ctx, 20*time.Millisecond, func(s *Song) { changed <- s })
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, store.Save(NewSong(128)))

	select {
	case song := <-changed:
		t.Fatalf("reloaded own save with tempo %v", song.Transport().Tempo)
	case <-time.After(300 * time.Millisecond):
	}
}
