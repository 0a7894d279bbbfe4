// internal/state/snapshot_test.go
package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/livectl/internal/types"
)

const sampleSnapshot = `
tempo: 96
is_playing: true
current_song_time: 12.5
tracks:
  - name: Drums
    audio_input: true
    clips:
      1: {name: Break, length: 16, is_audio: true}
      3: {name: Fill, length: 4, is_audio: true}
  - name: Keys
    midi_input: true
    slots: 2
`

func TestDecodeSnapshot(t *testing.T) {
	song, err := DecodeSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	tr := song.Transport()
	assert.Equal(t, 96.0, tr.Tempo)
	assert.True(t, tr.IsPlaying)
	assert.Equal(t, 12.5, tr.CurrentSongTime)

	tracks := song.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "Drums", tracks[0].Name)
	assert.True(t, tracks[0].HasAudioInput)
	assert.True(t, tracks[1].HasMIDIInput)

	slots, err := song.ClipSlots(0)
	require.NoError(t, err)
	assert.Len(t, slots, DefaultSlotCount)
	assert.True(t, slots[1].HasClip)
	assert.Equal(t, "Break", slots[1].Clip.Name)
	assert.True(t, slots[3].HasClip)

	keys, err := song.ClipSlots(1)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestDecodeSnapshotClipOutsideSlots(t *testing.T) {
	_, err := DecodeSnapshot([]byte("tracks:\n  - name: A\n    slots: 1\n    clips:\n      4: {name: X}\n"))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSaveLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")

	song := NewSong(140)
	song.AddTrack("Vox", true, false)
	require.NoError(t, song.SetClip(0, 5, types.Clip{Name: "Verse", Length: 32, IsAudio: true}))

	require.NoError(t, SaveSnapshot(path, song))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 140.0, loaded.Transport().Tempo)
	slots, err := loaded.ClipSlots(0)
	require.NoError(t, err)
	assert.True(t, slots[5].HasClip)
	assert.Equal(t, "Verse", slots[5].Clip.Name)
	assert.Equal(t, 32.0, slots[5].Clip.Length)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	song, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTempo, song.Transport().Tempo)
	assert.Empty(t, song.Tracks())
}
