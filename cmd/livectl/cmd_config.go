package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/livectl/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective configuration values",
	Long:  "List effective configuration values. Keys replaced by a LIVECTL_* environment variable are marked with the variable's name.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		values, err := config.ListValues(cfg)
		if err != nil {
			return fmt.Errorf("list config: %w", err)
		}
		overrides := config.EnvOverrides()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, k := range config.SortedKeys(values) {
			if env, ok := overrides[k]; ok {
				fmt.Fprintf(w, "%s\t= %v\t(from %s)\n", k, values[k], env)
				continue
			}
			fmt.Fprintf(w, "%s\t= %v\n", k, values[k])
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get an effective configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetValue(cfgPath, key, value); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s in %s\n", key, value, cfgPath)

		if env, ok := config.EnvOverrides()[key]; ok {
			fmt.Printf("%s is set in the environment and still takes precedence.\n", env)
		}
		cfg, err := config.LoadFile(cfgPath)
		if err != nil {
			return err
		}
		if pid, err := readPID(cfg); err == nil {
			fmt.Printf("The running daemon (PID %d) uses the new value after `livectl restart`.\n", pid)
		}
		return nil
	},
}
