package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/livectl/internal/client"
	"github.com/user/livectl/internal/config"
)

var sendTimeout time.Duration

func init() {
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "time to wait for the response")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <type> [params-json]",
	Short: "Send one command to the running server and print the result",
	Example: `  livectl send get_session_info
  livectl send create_audio_track '{"index": -1}'
  livectl send load_audio_file '{"file_path": "/tmp/kick.wav", "track_index": 0, "clip_slot_index": 0}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var params any
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("params must be valid JSON: %s", args[1])
			}
			params = json.RawMessage(args[1])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
		defer cancel()

		c, err := dialServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Call(ctx, args[0], params)
		if err != nil {
			return err
		}
		if err := resp.Err(); err != nil {
			return fmt.Errorf("server: %w", err)
		}

		out, err := json.MarshalIndent(resp.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("format result: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

// dialServer connects to the configured server, retrying while it starts up.
func dialServer(ctx context.Context, cfg *config.Config) (*client.Client, error) {
	policy := client.DefaultRetryPolicy()
	if cfg.Client.DialAttempts > 0 {
		policy.MaxAttempts = cfg.Client.DialAttempts
	}
	return client.Dial(ctx, cfg.Addr(), policy)
}
