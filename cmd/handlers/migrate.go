package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvintake/internal/config"
	"cvintake/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the candidate schema's migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show applied and pending migrations

Migrations are tracked in the schema_migrations table and applied in
sequential order, each in its own transaction.

Examples:
  cvintake migrate up
  cvintake migrate status`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func openMigrationDB() (*persistence.DB, error) {
	cfg := config.Get()
	if cfg.Database.ConnectionString == "" {
		return nil, fmt.Errorf("database.connection_string is not configured (set DATABASE_URL)")
	}
	return persistence.NewDB(cfg.Database.ConnectionString)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrationDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := persistence.NewMigrationManager(db).Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrationDB()
			if err != nil {
				return err
			}
			defer db.Close()

			applied, pending, err := persistence.NewMigrationManager(db).Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("applied: %v\npending: %v\n", applied, pending)
			return nil
		},
	}
}
