// Package client speaks the livectl wire protocol to a running server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/user/livectl/internal/protocol"
)

// Client holds one connection to the command server. Calls are serialised;
// the server answers requests in order.
type Client struct {
	conn net.Conn
	r    *protocol.Reader
	w    *protocol.Writer

	mu  sync.Mutex
	seq uint64
}

// Dial connects to addr, retrying per policy while the server is not yet
// accepting. A nil policy makes a single attempt.
func Dial(ctx context.Context, addr string, policy *RetryPolicy) (*Client, error) {
	if policy == nil {
		policy = NoRetry()
	}
	var d net.Dialer
	var conn net.Conn
	err := policy.Execute(ctx, func() error {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{
		conn: conn,
		r:    protocol.NewReader(conn, 0),
		w:    protocol.NewWriter(conn),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends a command with the given params (nil for none) and waits for the
// response. A non-nil error means a transport or decode failure; a server-side
// failure is reported through the response's Err method.
func (c *Client) Call(ctx context.Context, typ string, params any) (protocol.RawResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	id := strconv.FormatUint(c.seq, 10)
	req := struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Params any    `json:"params,omitempty"`
	}{ID: id, Type: typ, Params: params}

	data, err := json.Marshal(req)
	if err != nil {
		return protocol.RawResponse{}, fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.roundTrip(ctx, data)
	if err != nil {
		return protocol.RawResponse{}, err
	}
	if resp.ID != id {
		return protocol.RawResponse{}, fmt.Errorf("response id %q does not match request id %q", resp.ID, id)
	}
	return resp, nil
}

// SendRaw writes frame verbatim and returns the next response. It exists for
// tools and tests that need to send arbitrary bytes.
func (c *Client) SendRaw(ctx context.Context, frame []byte) (protocol.RawResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, frame)
}

func (c *Client) roundTrip(ctx context.Context, frame []byte) (protocol.RawResponse, error) {
	// A zero deadline clears any previous one.
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return protocol.RawResponse{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := c.w.WriteFrame(frame); err != nil {
		return protocol.RawResponse{}, fmt.Errorf("send request: %w", err)
	}
	data, err := c.r.ReadFrame()
	if err != nil {
		return protocol.RawResponse{}, fmt.Errorf("read response: %w", err)
	}
	return protocol.DecodeResponse(data)
}

// WaitClosed blocks until the server closes the connection or ctx ends. The
// server never writes unprompted, so any read result means the connection is
// gone.
func (c *Client) WaitClosed(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	var b [1]byte
	_, _ = c.conn.Read(b[:])
	return ctx.Err()
}

// SessionInfo runs get_session_info.
func (c *Client) SessionInfo(ctx context.Context) (protocol.SessionInfo, error) {
	var out protocol.SessionInfo
	err := c.call(ctx, protocol.TypeGetSessionInfo, nil, &out)
	return out, err
}

// CreateAudioTrack runs create_audio_track; pass protocol.AppendIndex to append.
func (c *Client) CreateAudioTrack(ctx context.Context, index int) (protocol.CreatedTrack, error) {
	var out protocol.CreatedTrack
	err := c.call(ctx, protocol.TypeCreateAudioTrack, map[string]any{"index": index}, &out)
	return out, err
}

// LoadAudioFile runs load_audio_file.
func (c *Client) LoadAudioFile(ctx context.Context, path string, trackIndex, slotIndex int) (protocol.LoadedClip, error) {
	var out protocol.LoadedClip
	params := map[string]any{
		"file_path":       path,
		"track_index":     trackIndex,
		"clip_slot_index": slotIndex,
	}
	err := c.call(ctx, protocol.TypeLoadAudioFile, params, &out)
	return out, err
}

// TrackInfo runs get_track_info.
func (c *Client) TrackInfo(ctx context.Context, trackIndex int) (protocol.TrackInfo, error) {
	var out protocol.TrackInfo
	err := c.call(ctx, protocol.TypeGetTrackInfo, map[string]any{"track_index": trackIndex}, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, typ string, params any, out any) error {
	resp, err := c.Call(ctx, typ, params)
	if err != nil {
		return err
	}
	return resp.DecodeResult(out)
}
