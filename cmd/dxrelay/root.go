package main

import (
	"fmt"
	"os"

	"github.com/rsclarke/dxrelay/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dxrelay",
	Short: "DX cluster spot relay",
	Long: `dxrelay keeps a logged-in session with a DX cluster telnet service,
forwards relevant spot lines to a Matrix room (or stdout), and writes
operator messages back to the cluster.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DXRELAY_CONFIG"), "config file (TOML, YAML or JSON)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
