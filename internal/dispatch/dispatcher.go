// Package dispatch routes decoded commands to handlers that run on the host
// loop and turns their outcome into a response envelope.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/livectl/internal/host"
	"github.com/user/livectl/internal/protocol"
	"github.com/user/livectl/internal/types"
)

// Executor runs fn with exclusive access to the session provider.
// *host.Loop is the production implementation.
type Executor interface {
	Do(ctx context.Context, name string, fn host.Func) (any, error)
}

// Dispatcher maps each command variant to its handler.
type Dispatcher struct {
	exec Executor
}

func New(exec Executor) *Dispatcher {
	return &Dispatcher{exec: exec}
}

// Dispatch executes the request's command and always returns exactly one
// response; handler and provider failures become error envelopes.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	result, err := d.Execute(ctx, req.Command)
	if err != nil {
		slog.Warn("command failed", "command", commandType(req.Command), "error", err)
		return protocol.Failure(req.ID, err)
	}
	return protocol.Success(req.ID, result)
}

// Execute runs cmd as one job on the executor. The whole handler, including
// any read-back after a mutation, runs inside that job.
func (d *Dispatcher) Execute(ctx context.Context, cmd protocol.Command) (any, error) {
	switch c := cmd.(type) {
	case protocol.GetSessionInfo:
		return d.exec.Do(ctx, c.Type(), getSessionInfo)
	case protocol.CreateAudioTrack:
		return d.exec.Do(ctx, c.Type(), func(p types.SessionProvider) (any, error) {
			return createAudioTrack(p, c)
		})
	case protocol.LoadAudioFile:
		return d.exec.Do(ctx, c.Type(), func(p types.SessionProvider) (any, error) {
			return loadAudioFile(p, c)
		})
	case protocol.GetTrackInfo:
		return d.exec.Do(ctx, c.Type(), func(p types.SessionProvider) (any, error) {
			return getTrackInfo(p, c)
		})
	case nil:
		return nil, protocol.ErrMissingType
	default:
		return nil, &protocol.UnknownCommandError{Type: cmd.Type()}
	}
}

func commandType(cmd protocol.Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.Type()
}

func getSessionInfo(p types.SessionProvider) (any, error) {
	tr := p.Transport()
	tracks := p.Tracks()

	info := protocol.SessionInfo{
		Tempo:           tr.Tempo,
		IsPlaying:       tr.IsPlaying,
		CurrentSongTime: tr.CurrentSongTime,
		Tracks:          make([]protocol.TrackInfo, 0, len(tracks)),
	}
	for i, t := range tracks {
		ti, err := describeTrack(p, i, t)
		if err != nil {
			return nil, err
		}
		info.Tracks = append(info.Tracks, ti)
	}
	return info, nil
}

func createAudioTrack(p types.SessionProvider, c protocol.CreateAudioTrack) (any, error) {
	index := c.Index
	if index == protocol.AppendIndex {
		index = len(p.Tracks())
	}
	if _, err := p.CreateAudioTrack(index); err != nil {
		return nil, fmt.Errorf("create audio track at %d: %w", index, err)
	}

	// Read the name back from the session, as the host may rename on insert.
	tracks := p.Tracks()
	if index >= len(tracks) {
		return nil, fmt.Errorf("created track %d not found in session", index)
	}
	return protocol.CreatedTrack{Index: index, Name: tracks[index].Name}, nil
}

func loadAudioFile(p types.SessionProvider, c protocol.LoadAudioFile) (any, error) {
	if _, err := p.CreateClip(c.TrackIndex, c.ClipSlotIndex); err != nil {
		return nil, fmt.Errorf("create clip in track %d slot %d: %w", c.TrackIndex, c.ClipSlotIndex, err)
	}

	slots, err := p.ClipSlots(c.TrackIndex)
	if err != nil {
		return nil, err
	}
	if c.ClipSlotIndex >= len(slots) || slots[c.ClipSlotIndex].Clip == nil {
		return nil, fmt.Errorf("clip slot %d of track %d is empty after create", c.ClipSlotIndex, c.TrackIndex)
	}
	clip := slots[c.ClipSlotIndex].Clip
	return protocol.LoadedClip{
		TrackIndex:    c.TrackIndex,
		ClipSlotIndex: c.ClipSlotIndex,
		ClipName:      clip.Name,
		ClipLength:    clip.Length,
	}, nil
}

func getTrackInfo(p types.SessionProvider, c protocol.GetTrackInfo) (any, error) {
	tracks := p.Tracks()
	if c.TrackIndex >= len(tracks) {
		return nil, fmt.Errorf("track index %d out of range (session has %d tracks)", c.TrackIndex, len(tracks))
	}
	return describeTrack(p, c.TrackIndex, tracks[c.TrackIndex])
}

// describeTrack builds the per-track shape shared by get_session_info and
// get_track_info.
func describeTrack(p types.SessionProvider, index int, t types.Track) (protocol.TrackInfo, error) {
	slots, err := p.ClipSlots(index)
	if err != nil {
		return protocol.TrackInfo{}, fmt.Errorf("clip slots of track %d: %w", index, err)
	}
	info := protocol.TrackInfo{
		Index:   index,
		Name:    t.Name,
		IsAudio: t.HasAudioInput,
		IsMIDI:  t.HasMIDIInput,
		Clips:   []protocol.ClipInfo{},
	}
	for i, slot := range slots {
		if !slot.HasClip || slot.Clip == nil {
			continue
		}
		info.Clips = append(info.Clips, protocol.ClipInfo{
			Index:   i,
			Name:    slot.Clip.Name,
			Length:  slot.Clip.Length,
			IsAudio: slot.Clip.IsAudio,
		})
	}
	return info, nil
}
