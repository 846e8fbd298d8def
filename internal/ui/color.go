package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// Styles render a single line. Multi-line text is padded to a block by lipgloss,
// so callers style each line separately.

func Pass(s string) string    { return passStyle.Render(s) }
func Fail(s string) string    { return failStyle.Render(s) }
func Pending(s string) string { return pendingStyle.Render(s) }
func Faint(s string) string   { return faintStyle.Render(s) }
func Bold(s string) string    { return boldStyle.Render(s) }

// Status colors a test or run status word.
func Status(status string) string {
	switch status {
	case "passed":
		return Pass(status)
	case "failed":
		return Fail(status)
	case "pending":
		return Pending(status)
	default:
		return status
	}
}

func CreatedLine(w io.Writer, path string) {
	fmt.Fprintln(w, passStyle.Render("new")+"  "+path)
}

func ExistsLine(w io.Writer, path string) {
	fmt.Fprintln(w, faintStyle.Render("ok")+"   "+path)
}

func StatusCountLine(w io.Writer, status string, count int) {
	fmt.Fprintf(w, "  %s: %d\n", Status(status), count)
}
