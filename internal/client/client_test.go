package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/livectl/internal/dispatch"
	"github.com/user/livectl/internal/host"
	"github.com/user/livectl/internal/protocol"
	"github.com/user/livectl/internal/server"
	"github.com/user/livectl/internal/state"
)

func startServer(t *testing.T) string {
	t.Helper()
	song := state.NewSong(96)
	song.AddTrack("Drums", true, false)
	song.AddTrack("Bass", false, true)

	loop := host.New(song, 8)
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	srv, err := server.New(server.Options{Host: "127.0.0.1"}, dispatch.New(loop))
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv.Addr().String()
}

func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSessionInfo(t *testing.T) {
	c := dialTest(t, startServer(t))

	info, err := c.SessionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 96.0, info.Tempo)
	require.Len(t, info.Tracks, 2)
	assert.Equal(t, "Bass", info.Tracks[1].Name)
	assert.True(t, info.Tracks[1].IsMIDI)
}

func TestCreateLoadAndInspect(t *testing.T) {
	c := dialTest(t, startServer(t))
	ctx := context.Background()

	created, err := c.CreateAudioTrack(ctx, protocol.AppendIndex)
	require.NoError(t, err)
	assert.Equal(t, 2, created.Index)

	loaded, err := c.LoadAudioFile(ctx, "/tmp/kick.wav", created.Index, 3)
	require.NoError(t, err)
	assert.Equal(t, created.Index, loaded.TrackIndex)
	assert.Equal(t, 3, loaded.ClipSlotIndex)
	assert.Equal(t, state.DefaultClipLength, loaded.ClipLength)

	info, err := c.TrackInfo(ctx, created.Index)
	require.NoError(t, err)
	assert.Equal(t, created.Name, info.Name)
	require.Len(t, info.Clips, 1)
	assert.Equal(t, 3, info.Clips[0].Index)
	assert.Equal(t, loaded.ClipName, info.Clips[0].Name)
}

func TestServerErrorSurfacesAsError(t *testing.T) {
	c := dialTest(t, startServer(t))

	_, err := c.TrackInfo(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	resp, err := c.Call(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.EqualError(t, resp.Err(), "Unknown command type: nope")
}

func TestSendRaw(t *testing.T) {
	c := dialTest(t, startServer(t))

	resp, err := c.SendRaw(context.Background(), []byte(`{not json`))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, resp.Status)

	info, err := c.SessionInfo(context.Background())
	require.NoError(t, err)
	assert.Len(t, info.Tracks, 2)
}

func TestDialRetriesUntilListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	accepted := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		late, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		defer late.Close()
		conn, err := late.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	policy := &RetryPolicy{MaxAttempts: 20, InitialDelay: 20 * time.Millisecond, Multiplier: 1.5, MaxDelay: 100 * time.Millisecond}
	c, err := Dial(context.Background(), addr, policy)
	require.NoError(t, err)
	defer c.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("late listener never accepted")
	}
}

func TestDialWithoutServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, NoRetry())
	assert.Error(t, err)
}

func TestCallHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(time.Second)
	}()

	c := dialTest(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.SessionInfo(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read response")
}

func TestWaitClosedReturnsWhenServerStops(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	release := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-release
		conn.Close()
	}()

	c := dialTest(t, ln.Addr().String())
	done := make(chan error, 1)
	go func() { done <- c.WaitClosed(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("returned before the server closed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitClosed did not return after close")
	}
}

func TestWaitClosedHonoursContext(t *testing.T) {
	addr := startServer(t)
	c := dialTest(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitClosed(ctx), context.DeadlineExceeded)
}
