package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/config"
	"github.com/kittclouds/mnemokit/internal/logging"
)

var (
	cfgFile string
	storeURI string
)

var rootCmd = &cobra.Command{
	Use:           "mnemokit",
	Short:         "Thin CLI around the temporally-decaying memory store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML/JSON config file")
	rootCmd.PersistentFlags().StringVar(&storeURI, "store-uri", "", "override the configured store URI")

	rootCmd.AddCommand(exportCmd, serveCmd, absorbCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if storeURI != "" {
		cfg.Store.URI = storeURI
	}
	return cfg, nil
}

// loadLogger builds the single *zap.Logger every subcommand threads
// into store.Open and, where applicable, the extraction/agentstore
// layers — there is no global logger anywhere in this module.
func loadLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.JSON)
}
