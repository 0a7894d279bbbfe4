// internal/types/interfaces.go
package types

// SessionProvider is the host's live session. Implementations are not
// required to be safe for concurrent use: callers must funnel every call
// through the host's controlling context.
type SessionProvider interface {
	Transport() Transport
	Tracks() []Track
	ClipSlots(trackIndex int) ([]ClipSlot, error)
	CreateAudioTrack(index int) (Track, error)
	CreateClip(trackIndex, slotIndex int) (Clip, error)
}
