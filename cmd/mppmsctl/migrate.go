package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merit-ol/mppms/internal/config"
	"github.com/merit-ol/mppms/internal/database"
)

func init() {
	MigrateCommand.AddCommand(&MigrateUpCommand)
	RootCmd.AddCommand(&MigrateCommand)
}

var MigrateCommand = cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var MigrateUpCommand = cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Backend != config.BackendPostgres {
			return fmt.Errorf("migrations only apply to the %s backend", config.BackendPostgres)
		}
		version, err := database.Migrate(cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		cmd.Printf("schema at version %d\n", version)
		return nil
	},
}
