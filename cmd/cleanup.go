package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reap abandoned recordings once",
	Long: `Run a single pass of the stale recording reaper.

Recordings still marked as recording after the configured age are marked
failed, and capture files older than the temp file age are removed. serve
runs the same pass on an interval when cleanup is enabled.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	application, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.reaper().RunOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d recording(s), removed %d temp file(s)\n",
		report.RecordingsReaped, report.FilesRemoved)
	return nil
}
