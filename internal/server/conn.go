package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/user/livectl/internal/protocol"
	"github.com/user/livectl/internal/types"
)

// serveConn runs the request/response loop for one client until it
// disconnects or a transport error occurs.
func (s *Server) serveConn(conn net.Conn) {
	id := types.NewConnID()
	log := slog.With("conn_id", types.ShortID(string(id)), "remote", conn.RemoteAddr().String())
	log.Info("client connected")
	defer func() {
		conn.Close()
		log.Info("client disconnected")
	}()

	r := protocol.NewReader(conn, s.opts.MaxFrameBytes)
	w := protocol.NewWriter(conn)

	for {
		if s.opts.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
				log.Error("failed to set read deadline", "error", err)
				return
			}
		}

		frame, err := r.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
			case errors.Is(err, protocol.ErrFrameTooLarge):
				log.Warn("frame too large, closing connection", "max_bytes", s.opts.MaxFrameBytes)
				s.send(conn, w, log, protocol.Failure("", fmt.Errorf("%w (limit %d bytes)", err, s.opts.MaxFrameBytes)))
			case errors.Is(err, net.ErrClosed):
			default:
				log.Warn("read failed", "error", err)
			}
			return
		}

		resp := s.handle(log, frame)
		if !s.send(conn, w, log, resp) {
			return
		}
	}
}

// handle decodes and dispatches one frame. A panic escaping the handler is
// converted to an error response.
func (s *Server) handle(log *slog.Logger, frame []byte) (resp protocol.Response) {
	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		log.Warn("rejected request", "error", err)
		return protocol.Failure(req.ID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("command handler panic", "command", req.Command.Type(), "panic", r)
			resp = protocol.Failure(req.ID, fmt.Errorf("internal error: %v", r))
		}
	}()

	log.Debug("received command", "command", req.Command.Type())
	return s.handler.Dispatch(s.ctx, req)
}

// send writes resp as one frame and reports whether the connection is still
// usable.
func (s *Server) send(conn net.Conn, w *protocol.Writer, log *slog.Logger, resp protocol.Response) bool {
	if s.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
			log.Error("failed to set write deadline", "error", err)
			return false
		}
	}
	if err := w.WriteFrame(protocol.EncodeOrFailure(resp)); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			log.Warn("send failed", "error", err)
		}
		return false
	}
	return true
}
