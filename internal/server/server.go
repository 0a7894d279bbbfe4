package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/livectl/internal/protocol"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 9877
)

var (
	ErrAlreadyRunning = errors.New("server is already running")
	ErrServerClosed   = errors.New("server closed")
)

// Handler executes a decoded request. *dispatch.Dispatcher implements it.
type Handler interface {
	Dispatch(ctx context.Context, req protocol.Request) protocol.Response
}

// Options configures a Server.
type Options struct {
	// Host defaults to DefaultHost.
	Host string
	// Port 0 binds an ephemeral port; pass DefaultPort for the standard one.
	Port int

	MaxFrameBytes int
	// ReadTimeout bounds how long a connection may sit idle between
	// requests. Zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server owns the listening socket and the single active client connection.
type Server struct {
	opts    Options
	handler Handler

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	closed   bool
	running  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates opts and returns an unstarted Server. Host must be a
// loopback address or "localhost".
func New(opts Options, handler Handler) (*Server, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = protocol.DefaultMaxFrameBytes
	}
	if !isLoopback(opts.Host) {
		return nil, fmt.Errorf("host %q is not a loopback address", opts.Host)
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", opts.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start binds the listener and launches the accept loop without blocking.
// A bind failure is logged once and returned; there is no retry.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.listener != nil {
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to start command server", "addr", addr, "error", err)
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(ln)

	slog.Info("command server started", "addr", ln.Addr().String())
	return nil
}

// StartWhenReady waits for ready to close and then calls Start. The returned
// channel receives Start's result, or ctx's error if ctx ends first.
func (s *Server) StartWhenReady(ctx context.Context, ready <-chan struct{}) <-chan error {
	errc := make(chan error, 1)
	go func() {
		select {
		case <-ready:
			errc <- s.Start()
		case <-ctx.Done():
			errc <- ctx.Err()
		}
	}()
	return errc
}

// Stop closes the active connection and the listener and waits for the
// accept loop to exit. It is idempotent and safe to call before Start.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closed = true
	wasRunning := s.running.Swap(false)
	s.cancel()

	var errs []error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close client connection: %w", err))
		}
		s.conn = nil
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		}
		s.listener = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	if wasRunning {
		slog.Info("command server stopped")
	}
	return errors.Join(errs...)
}

// Addr returns the bound address, or nil when the server is not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Running reports whether the accept loop is active.
func (s *Server) Running() bool {
	return s.running.Load()
}

// acceptLoop serves one connection at a time until the listener closes.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	var backoff time.Duration
	for s.running.Load() {
		slog.Debug("waiting for client connection")
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				slog.Debug("listener closed, exiting accept loop")
				return
			}
			backoff = nextBackoff(backoff)
			slog.Error("accept failed", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.track(conn) {
			conn.Close()
			return
		}
		s.serveConn(conn)
		s.untrack(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conn = conn
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		return time.Second
	}
	return d
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
