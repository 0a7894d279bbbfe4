package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/livectl/internal/host"
	"github.com/user/livectl/internal/mock"
	"github.com/user/livectl/internal/protocol"
	"github.com/user/livectl/internal/state"
	"github.com/user/livectl/internal/types"
)

func newDispatcher(t *testing.T, p types.SessionProvider) *Dispatcher {
	t.Helper()
	loop := host.New(p, 8)
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)
	return New(loop)
}

func sampleSong(t *testing.T) *state.Song {
	t.Helper()
	song := state.NewSong(128)
	song.SetTransport(types.Transport{Tempo: 128, IsPlaying: true, CurrentSongTime: 16})
	song.AddTrack("Drums", true, false)
	song.AddTrack("Keys", false, true)
	song.AddTrack("Empty", true, false)
	require.NoError(t, song.SetClip(0, 4, types.Clip{Name: "Fill", Length: 4, IsAudio: true}))
	require.NoError(t, song.SetClip(0, 1, types.Clip{Name: "Beat", Length: 16, IsAudio: true}))
	require.NoError(t, song.SetClip(1, 0, types.Clip{Name: "Chords", Length: 8}))
	return song
}

func TestGetSessionInfo(t *testing.T) {
	d := newDispatcher(t, sampleSong(t))

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetSessionInfo{}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)

	info, ok := resp.Result.(protocol.SessionInfo)
	require.True(t, ok)
	assert.Equal(t, 128.0, info.Tempo)
	assert.True(t, info.IsPlaying)
	assert.Equal(t, 16.0, info.CurrentSongTime)
	require.Len(t, info.Tracks, 3)

	drums := info.Tracks[0]
	assert.Equal(t, "Drums", drums.Name)
	assert.True(t, drums.IsAudio)
	require.Len(t, drums.Clips, 2)
	assert.Equal(t, 1, drums.Clips[0].Index)
	assert.Equal(t, "Beat", drums.Clips[0].Name)
	assert.Equal(t, 4, drums.Clips[1].Index)

	assert.True(t, info.Tracks[1].IsMIDI)
	assert.Len(t, info.Tracks[1].Clips, 1)
	assert.NotNil(t, info.Tracks[2].Clips)
	assert.Empty(t, info.Tracks[2].Clips)
}

func TestGetSessionInfoDoesNotMutate(t *testing.T) {
	song := sampleSong(t)
	before, err := state.EncodeSnapshot(song)
	require.NoError(t, err)

	d := newDispatcher(t, song)
	d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetSessionInfo{}})

	after, err := state.EncodeSnapshot(song)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCreateAudioTrackAppends(t *testing.T) {
	song := sampleSong(t)
	d := newDispatcher(t, song)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.CreateAudioTrack{Index: protocol.AppendIndex}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, protocol.CreatedTrack{Index: 3, Name: "4-Audio"}, resp.Result)
}

func TestCreateAudioTrackAtIndex(t *testing.T) {
	d := newDispatcher(t, sampleSong(t))

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.CreateAudioTrack{Index: 1}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, protocol.CreatedTrack{Index: 1, Name: "2-Audio"}, resp.Result)

	resp = d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetTrackInfo{TrackIndex: 2}})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.Equal(t, "Keys", resp.Result.(protocol.TrackInfo).Name)
}

func TestCreateAudioTrackOutOfRange(t *testing.T) {
	d := newDispatcher(t, sampleSong(t))

	resp := d.Dispatch(context.Background(), protocol.Request{ID: "x", Command: protocol.CreateAudioTrack{Index: 10}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, "x", resp.ID)
	assert.Contains(t, resp.Message, "index out of range")
	assert.Nil(t, resp.Result)
}

func TestLoadAudioFile(t *testing.T) {
	song := sampleSong(t)
	d := newDispatcher(t, song)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.LoadAudioFile{FilePath: "/tmp/kick.wav", TrackIndex: 2, ClipSlotIndex: 3}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, protocol.LoadedClip{
		TrackIndex:    2,
		ClipSlotIndex: 3,
		ClipName:      "Clip",
		ClipLength:    state.DefaultClipLength,
	}, resp.Result)
}

func TestLoadAudioFileOccupiedSlot(t *testing.T) {
	d := newDispatcher(t, sampleSong(t))

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.LoadAudioFile{FilePath: "a.wav", TrackIndex: 0, ClipSlotIndex: 1}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, state.ErrSlotOccupied.Error())
}

func TestGetTrackInfoSingleTrack(t *testing.T) {
	song := state.NewSong(120)
	song.AddTrack("Drums", true, false)
	d := newDispatcher(t, song)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetTrackInfo{TrackIndex: 0}})
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	data, err := protocol.Encode(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","result":{"index":0,"name":"Drums","is_audio":true,"is_midi":false,"clips":[]}}`, string(data))
}

func TestGetTrackInfoOutOfRange(t *testing.T) {
	d := newDispatcher(t, state.NewSong(120))

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetTrackInfo{TrackIndex: 0}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "out of range")
}

func TestProviderErrorCarriesMessage(t *testing.T) {
	p := &mock.SessionProvider{
		TracksFn: func() []types.Track { return []types.Track{{Name: "A"}} },
		ClipSlotsFn: func(int) ([]types.ClipSlot, error) {
			return nil, errors.New("host is busy")
		},
	}
	d := newDispatcher(t, p)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetTrackInfo{}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "host is busy")
}

func TestProviderPanicBecomesError(t *testing.T) {
	p := &mock.SessionProvider{
		TransportFn: func() types.Transport { panic("host crashed") },
	}
	d := newDispatcher(t, p)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetSessionInfo{}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "host crashed")
}

func TestCreateAudioTrackReadsNameBack(t *testing.T) {
	tracks := []types.Track{{Index: 0, Name: "A"}}
	p := &mock.SessionProvider{
		TracksFn: func() []types.Track { return tracks },
		CreateAudioTrackFn: func(index int) (types.Track, error) {
			tracks = append(tracks, types.Track{Index: index, Name: "renamed by host"})
			return types.Track{Index: index, Name: "provisional"}, nil
		},
	}
	d := newDispatcher(t, p)

	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.CreateAudioTrack{Index: protocol.AppendIndex}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, protocol.CreatedTrack{Index: 1, Name: "renamed by host"}, resp.Result)
}

func TestNilCommand(t *testing.T) {
	p := &mock.SessionProvider{}
	d := newDispatcher(t, p)

	resp := d.Dispatch(context.Background(), protocol.Request{})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, int64(0), p.Calls.Load())
}

type stoppedExecutor struct{}

func (stoppedExecutor) Do(context.Context, string, host.Func) (any, error) {
	return nil, host.ErrLoopStopped
}

func TestExecutorFailure(t *testing.T) {
	d := New(stoppedExecutor{})
	resp := d.Dispatch(context.Background(), protocol.Request{Command: protocol.GetSessionInfo{}})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, host.ErrLoopStopped.Error(), resp.Message)
}
