// internal/state/snapshot.go
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/user/livectl/internal/types"
)

// snapshot is the on-disk YAML format for a Song.
type snapshot struct {
	types.Transport `yaml:",inline"`
	Tracks          []trackSnapshot `yaml:"tracks"`
}

type trackSnapshot struct {
	Name       string              `yaml:"name"`
	AudioInput bool                `yaml:"audio_input"`
	MIDIInput  bool                `yaml:"midi_input"`
	Slots      int                 `yaml:"slots,omitempty"`
	Clips      map[int]*types.Clip `yaml:"clips,omitempty"`
}

// LoadSnapshot reads a Song from a YAML file. A missing file yields an empty
// song at DefaultTempo.
func LoadSnapshot(path string) (*Song, error) {
	return NewStore(path).Load()
}

// DecodeSnapshot parses YAML snapshot bytes into a Song.
func DecodeSnapshot(data []byte) (*Song, error) {
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	song := NewSong(snap.Tempo)
	song.transport.IsPlaying = snap.IsPlaying
	song.transport.CurrentSongTime = snap.CurrentSongTime

	for i, ts := range snap.Tracks {
		slots := ts.Slots
		if slots <= 0 {
			slots = DefaultSlotCount
		}
		t := &track{
			name:    ts.Name,
			audioIn: ts.AudioInput,
			midiIn:  ts.MIDIInput,
			slots:   make([]*types.Clip, slots),
		}
		for slot, clip := range ts.Clips {
			if slot < 0 || slot >= slots {
				return nil, fmt.Errorf("track %d clip slot %d: %w", i, slot, ErrIndexOutOfRange)
			}
			if clip == nil {
				continue
			}
			c := *clip
			t.slots[slot] = &c
		}
		song.tracks = append(song.tracks, t)
	}
	return song, nil
}

// EncodeSnapshot renders the song as YAML.
func EncodeSnapshot(song *Song) ([]byte, error) {
	snap := snapshot{Transport: song.transport, Tracks: make([]trackSnapshot, 0, len(song.tracks))}
	for _, t := range song.tracks {
		ts := trackSnapshot{
			Name:       t.name,
			AudioInput: t.audioIn,
			MIDIInput:  t.midiIn,
			Slots:      len(t.slots),
		}
		for i, c := range t.slots {
			if c == nil {
				continue
			}
			if ts.Clips == nil {
				ts.Clips = make(map[int]*types.Clip)
			}
			clip := *c
			ts.Clips[i] = &clip
		}
		snap.Tracks = append(snap.Tracks, ts)
	}
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// SaveSnapshot writes the song to path atomically.
func SaveSnapshot(path string, song *Song) error {
	data, err := EncodeSnapshot(song)
	if err != nil {
		return err
	}
	return writeSnapshotFile(path, data)
}

func writeSnapshotFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp snapshot: %w", err)
	}
	return nil
}
