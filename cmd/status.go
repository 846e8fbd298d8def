package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chriserin/ftspec/internal/db"
	"github.com/chriserin/ftspec/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the latest run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunStatus(cmd.OutOrStdout(), cfg.Database)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func RunStatus(w io.Writer, dbPath string) error {
	if err := requireDatabase(dbPath); err != nil {
		return err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close()

	run, err := db.NewStore(sqlDB).LatestRun()
	if errors.Is(err, db.ErrRunNotFound) {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s  %s  (%s)\n", shortID(run.ID), run.StartedAt.Format("2006-01-02 15:04:05"), run.Duration)
	fmt.Fprintf(w, "Tests: %d\n", run.Total())
	for _, c := range []struct {
		status string
		count  int
	}{
		{"passed", run.Passed},
		{"failed", run.Failed},
		{"pending", run.Pending},
	} {
		if c.count > 0 {
			ui.StatusCountLine(w, c.status, c.count)
		}
	}
	return nil
}
