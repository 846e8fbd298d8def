package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/chriserin/ftspec/internal/db"
	"github.com/chriserin/ftspec/internal/ui"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunHistory(cmd.OutOrStdout(), cfg.Database, historyLimitFlag)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Maximum number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func RunHistory(w io.Writer, dbPath string, limit int) error {
	if err := requireDatabase(dbPath); err != nil {
		return err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close()

	runs, err := db.NewStore(sqlDB).ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Passed", "Failed", "Pending", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Pending", Align: text.AlignRight},
	})

	for _, run := range runs {
		result := "passed"
		if run.Failed > 0 {
			result = "failed"
		}
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Duration.String(),
			run.Passed,
			run.Failed,
			run.Pending,
			ui.Status(result),
		})
	}
	t.Render()
	return nil
}
