// internal/types/models.go
package types

// Transport is the session-level playback state.
type Transport struct {
	Tempo           float64 `json:"tempo" yaml:"tempo"`
	IsPlaying       bool    `json:"is_playing" yaml:"is_playing"`
	CurrentSongTime float64 `json:"current_song_time" yaml:"current_song_time"`
}

// Track is a read-only view of one track in the session.
type Track struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	HasAudioInput bool   `json:"has_audio_input"`
	HasMIDIInput  bool   `json:"has_midi_input"`
}

// ClipSlot is a position within a track. Clip is nil when HasClip is false.
type ClipSlot struct {
	Index   int   `json:"index"`
	HasClip bool  `json:"has_clip"`
	Clip    *Clip `json:"clip,omitempty"`
}

type Clip struct {
	Name    string  `json:"name" yaml:"name"`
	Length  float64 `json:"length" yaml:"length"`
	IsAudio bool    `json:"is_audio" yaml:"is_audio"`
}
