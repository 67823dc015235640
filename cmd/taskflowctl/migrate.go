package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/database"
)

type migrateFunc func(cmd *cobra.Command, db *database.DB, src database.MigrationSource) error

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
		confirm     bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back schema migrations.

Migrations are read from --path when set, otherwise from the copy
embedded in the binary.`,
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&path, "path", os.Getenv("MIGRATIONS_PATH"), "migrations directory (default: embedded)")

	withDB := func(fn migrateFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			db, err := database.Open(config.DatabaseConfig{URL: databaseURL, MaxOpenConns: 2, MaxIdleConns: 1})
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(cmd, db, database.MigrationSource{Path: path})
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, db *database.DB, src database.MigrationSource) error {
			return db.MigrateUp(src)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, db *database.DB, src database.MigrationSource) error {
			return db.MigrateDown(src)
		}),
	})

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Roll back every migration (drops all data)",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return nil
		},
		RunE: withDB(func(cmd *cobra.Command, db *database.DB, src database.MigrationSource) error {
			return db.MigrateReset(src)
		}),
	}
	reset.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all data")
	cmd.AddCommand(reset)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, db *database.DB, src database.MigrationSource) error {
			version, dirty, err := db.MigrateVersion(src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", version, dirty)
			return nil
		}),
	})

	return cmd
}
