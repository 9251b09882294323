package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/merit-ol/mppms/internal/config"
	"github.com/merit-ol/mppms/internal/logging"
)

var (
	// flags
	configFile string

	cfg    *config.Config
	logger zerolog.Logger
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (overrides MPPMS_CONFIG)")
}

var RootCmd = cobra.Command{
	Use:               "mppmsctl",
	Short:             "Maintenance commands for the MPPMS catalogue",
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := os.Setenv("MPPMS_CONFIG", configFile); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger = logging.New(cfg.Log.Level, "console", cmd.ErrOrStderr())
		return nil
	},
}
