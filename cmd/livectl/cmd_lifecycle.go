package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/livectl/internal/client"
	"github.com/user/livectl/internal/config"
)

var errNoDaemon = errors.New("no running daemon")

var (
	stopWait    time.Duration
	restartWait time.Duration
)

const portPollInterval = 50 * time.Millisecond

func init() {
	rootCmd.AddCommand(stopCmd, restartCmd)
	stopCmd.Flags().DurationVar(&stopWait, "wait", 5*time.Second, "how long to wait for the port to close (0 returns at once)")
	restartCmd.Flags().DurationVar(&restartWait, "wait", 10*time.Second, "how long to wait for the server to come back (0 returns at once)")
}

// readPID returns the PID written by serve if that process is still alive.
// A PID file left behind by a daemon that died is removed.
func readPID(cfg *config.Config) (int, error) {
	pidPath := cfg.PIDPath()

	data, err := os.ReadFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, errNoDaemon
	}
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("PID file %s holds %q, not a process id", pidPath, strings.TrimSpace(string(data)))
	}

	// Signal 0 checks for the process without touching it. EPERM still
	// means it exists.
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		os.Remove(pidPath)
		return 0, fmt.Errorf("%w: process %d exited, removed stale %s", errNoDaemon, pid, pidPath)
	}
	return pid, nil
}

func signalDaemon(cfg *config.Config, sig syscall.Signal) (int, error) {
	pid, err := readPID(cfg)
	if err != nil {
		return 0, err
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return 0, fmt.Errorf("send %v to PID %d: %w", sig, pid, err)
	}
	return pid, nil
}

// waitPortClosed dials addr until the connection is refused. Each attempt is
// a single dial so the refusal is seen as soon as the listener is gone.
func waitPortClosed(ctx context.Context, addr string) error {
	ticker := time.NewTicker(portPollInterval)
	defer ticker.Stop()

	for {
		c, err := client.Dial(ctx, addr, client.NoRetry())
		if err == nil {
			c.Close()
		} else if client.IsRefused(err) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s still accepting: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		pid, err := signalDaemon(cfg, syscall.SIGTERM)
		if err != nil {
			return err
		}
		if stopWait <= 0 {
			fmt.Printf("Sent SIGTERM to daemon (PID %d).\n", pid)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), stopWait)
		defer cancel()
		if err := waitPortClosed(ctx, cfg.Addr()); err != nil {
			return fmt.Errorf("daemon (PID %d) did not stop: %w", pid, err)
		}
		fmt.Printf("Daemon (PID %d) stopped; %s is free.\n", pid, cfg.Addr())
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running daemon and wait for it to serve again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if restartWait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, restartWait)
			defer cancel()
		}

		// A connection held across the signal tells us when the old server
		// has gone, even if the new one binds again before we look.
		held, _ := client.Dial(ctx, cfg.Addr(), client.NoRetry())
		if held != nil {
			defer held.Close()
		}

		pid, err := signalDaemon(cfg, syscall.SIGHUP)
		if err != nil {
			return err
		}
		if restartWait <= 0 {
			fmt.Printf("Sent SIGHUP to daemon (PID %d) for restart.\n", pid)
			return nil
		}

		if held != nil {
			if err := held.WaitClosed(ctx); err != nil {
				return fmt.Errorf("daemon (PID %d) did not shut down for restart: %w", pid, err)
			}
		}

		c, err := dialServer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("daemon (PID %d) did not come back: %w", pid, err)
		}
		defer c.Close()

		info, err := c.SessionInfo(ctx)
		if err != nil {
			return fmt.Errorf("daemon (PID %d) came back but did not answer: %w", pid, err)
		}
		fmt.Printf("Daemon (PID %d) restarted on %s with %d tracks.\n", pid, cfg.Addr(), len(info.Tracks))
		return nil
	},
}
