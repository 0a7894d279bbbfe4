// Package mock provides test doubles for livectl interfaces using function fields.
package mock

import (
	"sync/atomic"

	"github.com/user/livectl/internal/types"
)

// Interface compliance check.
var _ types.SessionProvider = (*SessionProvider)(nil)

// SessionProvider is a test double for types.SessionProvider.
// Set the function fields for the methods you need; Calls counts every call.
type SessionProvider struct {
	TransportFn        func() types.Transport
	TracksFn           func() []types.Track
	ClipSlotsFn        func(trackIndex int) ([]types.ClipSlot, error)
	CreateAudioTrackFn func(index int) (types.Track, error)
	CreateClipFn       func(trackIndex, slotIndex int) (types.Clip, error)

	Calls atomic.Int64
}

// Transport delegates to TransportFn.
func (p *SessionProvider) Transport() types.Transport {
	p.Calls.Add(1)
	return p.TransportFn()
}

// Tracks delegates to TracksFn.
func (p *SessionProvider) Tracks() []types.Track {
	p.Calls.Add(1)
	return p.TracksFn()
}

// ClipSlots delegates to ClipSlotsFn.
func (p *SessionProvider) ClipSlots(trackIndex int) ([]types.ClipSlot, error) {
	p.Calls.Add(1)
	return p.ClipSlotsFn(trackIndex)
}

// CreateAudioTrack delegates to CreateAudioTrackFn.
func (p *SessionProvider) CreateAudioTrack(index int) (types.Track, error) {
	p.Calls.Add(1)
	return p.CreateAudioTrackFn(index)
}

// CreateClip delegates to CreateClipFn.
func (p *SessionProvider) CreateClip(trackIndex, slotIndex int) (types.Clip, error) {
	p.Calls.Add(1)
	return p.CreateClipFn(trackIndex, slotIndex)
}
