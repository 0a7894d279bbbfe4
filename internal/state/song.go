// internal/state/song.go
package state

import (
	"errors"
	"fmt"

	"github.com/user/livectl/internal/types"
)

const (
	// DefaultSlotCount is the number of clip slots given to every new track.
	DefaultSlotCount = 8
	// DefaultClipLength is the length, in beats, of a clip created in an empty slot.
	DefaultClipLength = 4.0
	DefaultTempo      = 120.0
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrSlotOccupied    = errors.New("clip slot already has a clip")
)

// Song is an in-memory session. It is not safe for concurrent use; the host
// loop is its only caller.
type Song struct {
	transport types.Transport
	tracks    []*track
}

type track struct {
	name    string
	audioIn bool
	midiIn  bool
	slots   []*types.Clip
}

// NewSong returns an empty song at the given tempo.
func NewSong(tempo float64) *Song {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	return &Song{transport: types.Transport{Tempo: tempo}}
}

// AddTrack appends a track with DefaultSlotCount empty slots and returns its index.
func (s *Song) AddTrack(name string, audioIn, midiIn bool) int {
	s.tracks = append(s.tracks, &track{
		name:    name,
		audioIn: audioIn,
		midiIn:  midiIn,
		slots:   make([]*types.Clip, DefaultSlotCount),
	})
	return len(s.tracks) - 1
}

// SetClip places a copy of clip into the given slot, replacing any existing clip.
func (s *Song) SetClip(trackIndex, slotIndex int, clip types.Clip) error {
	t, err := s.track(trackIndex)
	if err != nil {
		return err
	}
	if slotIndex < 0 || slotIndex >= len(t.slots) {
		return fmt.Errorf("clip slot %d: %w", slotIndex, ErrIndexOutOfRange)
	}
	t.slots[slotIndex] = &clip
	return nil
}

func (s *Song) SetTransport(tr types.Transport) {
	s.transport = tr
}

// ReplaceWith swaps the contents of s for those of other.
func (s *Song) ReplaceWith(other *Song) {
	s.transport = other.transport
	s.tracks = other.tracks
}

func (s *Song) Transport() types.Transport {
	return s.transport
}

func (s *Song) Tracks() []types.Track {
	out := make([]types.Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = types.Track{
			Index:         i,
			Name:          t.name,
			HasAudioInput: t.audioIn,
			HasMIDIInput:  t.midiIn,
		}
	}
	return out
}

func (s *Song) ClipSlots(trackIndex int) ([]types.ClipSlot, error) {
	t, err := s.track(trackIndex)
	if err != nil {
		return nil, err
	}
	out := make([]types.ClipSlot, len(t.slots))
	for i, c := range t.slots {
		out[i] = types.ClipSlot{Index: i}
		if c != nil {
			clip := *c
			out[i].HasClip = true
			out[i].Clip = &clip
		}
	}
	return out, nil
}

// CreateAudioTrack inserts a new audio track at index, shifting later tracks.
// index may equal the current track count to append.
func (s *Song) CreateAudioTrack(index int) (types.Track, error) {
	if index < 0 || index > len(s.tracks) {
		return types.Track{}, fmt.Errorf("track %d: %w", index, ErrIndexOutOfRange)
	}
	t := &track{
		name:    fmt.Sprintf("%d-Audio", index+1),
		audioIn: true,
		slots:   make([]*types.Clip, DefaultSlotCount),
	}
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[index+1:], s.tracks[index:])
	s.tracks[index] = t
	return types.Track{Index: index, Name: t.name, HasAudioInput: true}, nil
}

func (s *Song) CreateClip(trackIndex, slotIndex int) (types.Clip, error) {
	t, err := s.track(trackIndex)
	if err != nil {
		return types.Clip{}, err
	}
	if slotIndex < 0 || slotIndex >= len(t.slots) {
		return types.Clip{}, fmt.Errorf("clip slot %d: %w", slotIndex, ErrIndexOutOfRange)
	}
	if t.slots[slotIndex] != nil {
		return types.Clip{}, ErrSlotOccupied
	}
	clip := types.Clip{Name: "Clip", Length: DefaultClipLength, IsAudio: t.audioIn}
	t.slots[slotIndex] = &clip
	return clip, nil
}

func (s *Song) track(index int) (*track, error) {
	if index < 0 || index >= len(s.tracks) {
		return nil, fmt.Errorf("track %d: %w", index, ErrIndexOutOfRange)
	}
	return s.tracks[index], nil
}
