package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/chriserin/ftspec/internal/db"
	"github.com/chriserin/ftspec/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the tests of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunShow(cmd.OutOrStdout(), cfg.Database, args[0])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// RunShow prints one run: a header, a table of its tests and the message of
// every failure. The id may be any unique prefix.
func RunShow(w io.Writer, dbPath, rawID string) error {
	if err := requireDatabase(dbPath); err != nil {
		return err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close()

	store := db.NewStore(sqlDB)
	run, err := store.FindRun(strings.TrimSpace(rawID))
	if err != nil {
		return err
	}
	results, err := store.Results(run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, ui.Bold("Run "+run.ID))
	fmt.Fprintf(w, "Started %s, took %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Duration)
	fmt.Fprintf(w, "%d passed, %d failed, %d pending\n\n", run.Passed, run.Failed, run.Pending)

	if len(results) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Feature", "Scenario", "Test", "Status", "Location"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Feature", AutoMerge: true},
		{Name: "Scenario", AutoMerge: true, WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
	})

	var failures []db.TestRecord
	for _, r := range results {
		feature := strings.TrimPrefix(r.Feature, "Feature: ")
		scenario := r.Scenario
		if _, after, ok := strings.Cut(scenario, ": "); ok {
			scenario = after
		}
		t.AppendRow(table.Row{r.Position + 1, feature, scenario, r.Description, ui.Status(r.Status), location(r)})
		if r.Status == "failed" {
			failures = append(failures, r)
		}
	}
	t.Render()

	for i, f := range failures {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.Fail(fmt.Sprintf("%d) %s", i+1, f.Description)))
		for _, line := range strings.Split(f.Message, "\n") {
			fmt.Fprintln(w, "   "+line)
		}
		fmt.Fprintln(w, ui.Faint("   # "+f.Class+" thrown"))
	}
	return nil
}

func location(r db.TestRecord) string {
	if r.File == "" {
		return ""
	}
	loc := fmt.Sprintf("%s:%d", r.File, r.Line)
	if r.Remote {
		loc += " (isolated)"
	}
	return loc
}
