package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/livectl/internal/config"
	"github.com/user/livectl/internal/dispatch"
	"github.com/user/livectl/internal/host"
	"github.com/user/livectl/internal/server"
	"github.com/user/livectl/internal/state"
	"github.com/user/livectl/internal/types"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the command server daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(cfg *config.Config) (string, error) {
	pidPath := cfg.PIDPath()
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	sessionPath := cfg.SessionPath()
	store := state.NewStore(sessionPath)
	song, err := store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	loop := host.New(song, cfg.Host.QueueSize)
	srv, err := server.New(server.Options{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		MaxFrameBytes: cfg.Server.MaxFrameBytes,
		ReadTimeout:   cfg.ReadTimeout(),
	}, dispatch.New(loop))
	if err != nil {
		return err
	}

	slog.Info("livectl starting",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"addr", cfg.Addr(),
		"session", sessionPath,
		"tracks", len(song.Tracks()),
		"watch", cfg.Session.Watch,
		"pid_file", pidPath,
	)

	restart, err := runDaemon(cmd.Context(), cfg, loop, srv, store, song)

	stats := loop.Stats()
	slog.Info("host loop stopped",
		"completed", stats.Completed,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)

	// The loop has exited, so the song has no other user.
	if cfg.Session.SaveOnExit {
		if _, saveErr := saveSession(store, song); saveErr != nil {
			slog.Error("failed to save session", "path", sessionPath, "error", saveErr)
		}
	}
	if err != nil {
		return err
	}
	if restart {
		reexec(pidPath)
	}
	return nil
}

// saveSession writes song back to the store unless the file was replaced
// since the daemon last read or wrote it, as `session reset` does. The file
// on disk wins in that case.
func saveSession(store *state.Store, song *state.Song) (bool, error) {
	changed, err := store.Changed()
	if err != nil {
		return false, err
	}
	if changed {
		slog.Warn("session file changed on disk, not overwriting", "path", store.Path())
		return false, nil
	}
	if err := store.Save(song); err != nil {
		return false, err
	}
	slog.Info("session saved", "path", store.Path())
	return true, nil
}

// runDaemon runs the host loop, the command server, the optional snapshot
// watcher and the signal handler until one of them ends. It reports whether
// a restart was requested with SIGHUP.
func runDaemon(parent context.Context, cfg *config.Config, loop *host.Loop, srv *server.Server, store *state.Store, song *state.Song) (bool, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var restart bool

	g.Go(func() error {
		loop.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := <-srv.StartWhenReady(gctx, loop.Ready()); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("start command server: %w", err)
		}
		<-gctx.Done()
		return srv.Stop()
	})

	if cfg.Session.Watch {
		g.Go(func() error {
			return store.Watch(gctx, 0, func(next *state.Song) {
				_, err := loop.Do(gctx, "reload_session", func(types.SessionProvider) (any, error) {
					song.ReplaceWith(next)
					return nil, nil
				})
				if err != nil {
					slog.Warn("session reload failed", "error", err)
				}
			})
		})
	}

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigChan)

		select {
		case <-gctx.Done():
			return nil
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				restart = true
			} else {
				slog.Info("shutting down", "signal", sig)
			}
			cancel()
			return nil
		}
	})

	// The snapshot is loaded; the host can take commands.
	loop.MarkReady()

	err := g.Wait()
	return restart, err
}

// reexec replaces the process with a fresh copy of itself.
func reexec(pidPath string) {
	execPath, err := os.Executable()
	if err != nil {
		slog.Error("failed to get executable path", "error", err)
		return
	}
	// Clean up PID file before re-exec
	os.Remove(pidPath)
	if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
		slog.Error("failed to re-exec", "error", err)
	}
}
