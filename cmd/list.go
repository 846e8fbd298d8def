package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
	"github.com/chriserin/ftspec/internal/ui"
)

var listGrepFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the features this binary can run",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog(catalog, featuresFlag, steps)
		if err != nil {
			return err
		}
		return RunList(cmd.OutOrStdout(), c, listGrepFlag)
	},
}

func init() {
	listCmd.Flags().StringVar(&listGrepFlag, "grep", "", "Only list features whose name matches this glob")
	listCmd.Flags().StringVar(&featuresFlag, "features", "features", "Directory of .feature files")
	rootCmd.AddCommand(listCmd)
}

type listRow struct {
	name      string
	tests     int
	pending   int
	isolated  int
	scenarios int
}

func RunList(w io.Writer, c *dsl.Catalog, grep string) error {
	entries, err := c.Match(grep)
	if err != nil {
		return err
	}

	var rows []listRow
	nameWidth := 0
	for _, e := range entries {
		tree := runner.NewTree()
		e.Spec.Register(tree)

		r := listRow{name: e.Name}
		tree.Root().Walk(func(n runner.Node) {
			switch n := n.(type) {
			case *runner.Suite:
				if n.Isolated {
					r.isolated++
				}
				if n.Description() != "" && n.Parent() != tree.Root() {
					r.scenarios++
				}
			case *runner.Test:
				r.tests++
				if n.IsPending() {
					r.pending++
				}
			}
		})
		rows = append(rows, r)
		nameWidth = max(nameWidth, len(e.Name))
	}

	for _, r := range rows {
		line := fmt.Sprintf("%-*s  %3d tests  %3d scenarios", nameWidth, r.name, r.tests, r.scenarios)
		if r.pending > 0 {
			line += "  " + ui.Pending(fmt.Sprintf("%d pending", r.pending))
		}
		if r.isolated > 0 {
			line += "  " + ui.Faint(fmt.Sprintf("%d isolated", r.isolated))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
