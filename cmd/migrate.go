package cmd

import (
	"fmt"
	"strings"

	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage database migrations for the Scribe API.

The schema is derived from the appointment, recording, transcript and
clinical note models. serve applies it on startup; these subcommands let
operators apply, drop or inspect it explicitly.

Available subcommands:
  up      - Apply all pending migrations
  down    - Rollback the last migration
  status  - Show current migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Apply all pending database migrations.

Creates missing tables, columns and indexes so the schema matches the
current models. Existing data is left untouched.`,
	RunE: runMigrateUp,
}

// migrateDownCmd rolls back the last migration
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the last migration",
	Long: `Rollback the last applied migration.

Drops every scribe table, including recordings, transcripts and notes.
Audio in durable storage is not deleted.`,
	RunE: runMigrateDown,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of database migrations.

Lists each model table and whether it exists in the configured database.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateDownCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func openDatabase() (*database.DB, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	return database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, name := range pendingTables(db) {
			fmt.Fprintf(out, "  would create %s\n", name)
		}
		return nil
	}

	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied schema for %d model(s)\n", len(models.All()))
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		return nil
	}

	if !yes {
		fmt.Fprint(out, "WARNING: This will drop all scribe tables. Continue? (y/N): ")
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Migration rollback cancelled")
			return nil
		}
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	all := models.All()
	// Children before parents
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Fprintf(out, "Dropped %d table(s)\n", len(all))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, repeatString("=", 50))

	for _, model := range models.All() {
		status := "pending"
		if db.Migrator().HasTable(model) {
			status = "applied"
		}
		fmt.Fprintf(out, "  %-20s %s\n", tableName(db, model), status)
	}
	return nil
}

func pendingTables(db *database.DB) []string {
	var pending []string
	for _, model := range models.All() {
		if !db.Migrator().HasTable(model) {
			pending = append(pending, tableName(db, model))
		}
	}
	return pending
}

func tableName(db *database.DB, model any) string {
	stmt := db.Model(model).Statement
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

// repeatString repeats a string n times
func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
