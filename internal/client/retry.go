package client

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"
)

// RetryPolicy controls how a dial to a server that is still starting is
// retried. The wait before attempt n+1 is InitialDelay*Multiplier^(n-1),
// capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy covers a daemon that needs a couple of seconds to bind:
// 5 attempts, 100ms initial delay, 2x multiplier, 2s max delay.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
	}
}

// NoRetry makes a single attempt.
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1, Multiplier: 1}
}

// IsRefused reports whether err means nothing is listening at the address.
func IsRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Retryable reports whether a dial error may clear up on its own. A refused
// or reset connection, a timeout, or a temporary resolver failure is
// retryable. Context errors, malformed addresses and unknown hosts are not,
// and neither is anything unclassified.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsRefused(err) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound && (dnsErr.IsTemporary || dnsErr.IsTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// ShouldRetry reports whether attempt (1-indexed) failed with a retryable
// error and another attempt is allowed.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt < p.MaxAttempts && Retryable(err)
}

// NextDelay returns the wait after the given failed attempt (1-indexed).
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Execute runs fn until it succeeds, fails with a permanent error, runs out
// of attempts, or ctx ends while waiting. It returns fn's last error.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !p.ShouldRetry(err, attempt) {
			return err
		}

		delay := p.NextDelay(attempt)
		slog.Debug("retrying dial", "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return err
		}
	}
}
