package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/freyrlabs/mimir/pkg/config"
	"github.com/freyrlabs/mimir/pkg/metrics"
	"github.com/freyrlabs/mimir/pkg/repair"
)

type ctxKey string

const serviceCtxKey ctxKey = "service"

// recorder is built once per process: registering a second Recorder
// against the shared registry would panic on duplicate metric names.
var recorder *metrics.Recorder

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mimir",
	Short: "mimir repairs and salvages CouchDB-style .couch database files",
	Long: `mimir is an append-only B-tree document store repair core: it
rebuilds a stale trailing header from surviving tree nodes and, when that
fails, scans a damaged file for any by-id roots it can still recover into a
fresh lost+found database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		runID := ksuid.New().String()

		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		cfg := config.DefaultConfig()
		if config.ConfigExists(configPath) {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		}
		if dbDir, _ := cmd.Flags().GetString("database-dir"); dbDir != "" {
			cfg.DatabaseDir = dbDir
		}

		if recorder == nil {
			recorder = metrics.NewRecorder(prometheusRegistry())
		}
		svc := repair.NewService(cfg, recorder)

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: database_dir=%s\n", runID, cfg.DatabaseDir)
		cmd.SetContext(context.WithValue(cmd.Context(), serviceCtxKey, svc))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once against rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a mimir config file (default: the per-user config file if it exists, otherwise built-in defaults)")
	rootCmd.PersistentFlags().StringP("database-dir", "d", "", "database directory, overriding the config file's database_dir")
}

func serviceFromContext(cmd *cobra.Command) (*repair.Service, error) {
	svc, ok := cmd.Context().Value(serviceCtxKey).(*repair.Service)
	if !ok {
		return nil, fmt.Errorf("repair service not initialized")
	}
	return svc, nil
}
