package cmd

import (
	"fmt"

	"github.com/solatis/antiseptic/internal/core/db"
	"github.com/solatis/antiseptic/internal/display"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply journal database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.JournalURL == "" {
		return fmt.Errorf("journal is disabled (journal_url is empty)")
	}

	database, err := db.Open(cfg.JournalURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if status, _ := cmd.Flags().GetBool("status"); !status {
		if err := db.MigrateUp(ctx, database); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		logger.Infow("migrations applied")
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), display.MigrationTable(statuses))
	if db.Pending(statuses) {
		fmt.Fprintln(cmd.OutOrStdout(), "Pending migrations: run 'antiseptic migrate' to apply them.")
	}
	return nil
}
