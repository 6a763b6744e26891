package main

import (
	"steel-store/internal/database"

	"github.com/spf13/cobra"
)

// storectl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

// storectl migrate up
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot()
		if err != nil {
			return err
		}
		defer a.close()
		return database.RunMigrations(a.dbSvc.DB(), a.log)
	},
}

// storectl migrate down
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot()
		if err != nil {
			return err
		}
		defer a.close()
		return database.RollbackMigration(a.dbSvc.DB(), a.log)
	},
}

// storectl migrate status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot()
		if err != nil {
			return err
		}
		defer a.close()
		return database.GetMigrationStatus(a.dbSvc.DB())
	},
}
