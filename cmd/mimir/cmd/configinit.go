package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freyrlabs/mimir/pkg/config"
)

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a default config file, so repair/lost-and-found/find-nodes pick it up without flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(path) {
			return fmt.Errorf("config already exists at %s", path)
		}

		cfg := config.DefaultConfig()
		if dbDir, _ := cmd.Flags().GetString("database-dir"); dbDir != "" {
			cfg.DatabaseDir = dbDir
		}
		if err := config.SaveConfig(cfg, path); err != nil {
			return fmt.Errorf("config-init: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote config to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configInitCmd)
}
