package protocol

// Result payloads, one per command.

type ClipInfo struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Length  float64 `json:"length"`
	IsAudio bool    `json:"is_audio"`
}

// TrackInfo lists only the occupied clip slots, in slot order. Clips is never
// nil so it encodes as [] rather than null.
type TrackInfo struct {
	Index   int        `json:"index"`
	Name    string     `json:"name"`
	IsAudio bool       `json:"is_audio"`
	IsMIDI  bool       `json:"is_midi"`
	Clips   []ClipInfo `json:"clips"`
}

type SessionInfo struct {
	Tempo           float64     `json:"tempo"`
	IsPlaying       bool        `json:"is_playing"`
	CurrentSongTime float64     `json:"current_song_time"`
	Tracks          []TrackInfo `json:"tracks"`
}

type CreatedTrack struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type LoadedClip struct {
	TrackIndex    int     `json:"track_index"`
	ClipSlotIndex int     `json:"clip_slot_index"`
	ClipName      string  `json:"clip_name"`
	ClipLength    float64 `json:"clip_length"`
}
