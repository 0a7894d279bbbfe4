package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/livectl/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(os.Stdin, cfgPath)
	},
}

// runSetup prompts on in for the common settings and saves them to path.
func runSetup(in io.Reader, path string) error {
	// The file's own values, so env overrides are not written back.
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	scanner := bufio.NewScanner(in)

	fmt.Println("livectl Setup")
	fmt.Println("Press Enter to accept the default value shown in brackets.")
	fmt.Println()

	// 1. Listen host (loopback only)
	cfg.Server.Host = prompt(scanner, "Listen host", cfg.Server.Host)

	// 2. Listen port
	portStr := prompt(scanner, "Listen port", strconv.Itoa(cfg.Server.Port))
	if n, err := strconv.Atoi(portStr); err == nil {
		cfg.Server.Port = n
	}

	// 3. Log level
	cfg.LogLevel = prompt(scanner, "Log level (debug, info, warn, error)", cfg.LogLevel)

	// 4. Session snapshot file
	cfg.Session.File = prompt(scanner, "Session file (relative to data dir)", cfg.Session.File)

	// 5. Reload the session when the file changes
	watch := prompt(scanner, "Reload session on file change (y/n)", yesNo(cfg.Session.Watch))
	cfg.Session.Watch = strings.HasPrefix(strings.ToLower(watch), "y")

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved to", path)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
