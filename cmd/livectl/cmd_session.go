package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/livectl/internal/state"
)

var resetTempo float64

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionResetCmd)
	sessionResetCmd.Flags().Float64Var(&resetTempo, "tempo", state.DefaultTempo, "tempo of the new session")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the live session's transport and tracks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		c, err := dialServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		info, err := c.SessionInfo(ctx)
		if err != nil {
			return fmt.Errorf("get session info: %w", err)
		}

		playing := "stopped"
		if info.IsPlaying {
			playing = "playing"
		}
		fmt.Printf("Tempo %.2f BPM, %s at beat %.2f\n\n", info.Tempo, playing, info.CurrentSongTime)

		if len(info.Tracks) == 0 {
			fmt.Println("No tracks.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tINPUT\tCLIPS")
		for _, t := range info.Tracks {
			var inputs []string
			if t.IsAudio {
				inputs = append(inputs, "audio")
			}
			if t.IsMIDI {
				inputs = append(inputs, "midi")
			}
			var clips []string
			for _, clip := range t.Clips {
				clips = append(clips, fmt.Sprintf("%d:%s", clip.Index, clip.Name))
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				t.Index,
				t.Name,
				strings.Join(inputs, "+"),
				strings.Join(clips, " "),
			)
		}
		return w.Flush()
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the session snapshot with an empty session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		path := cfg.SessionPath()

		if err := state.SaveSnapshot(path, state.NewSong(resetTempo)); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session reset at %s.\n", path)
		if _, err := readPID(cfg); err == nil {
			if cfg.Session.Watch {
				fmt.Println("The running daemon reloads it now.")
			} else {
				fmt.Println("The running daemon keeps its current session and loads this one on restart.")
			}
		}
		return nil
	},
}
