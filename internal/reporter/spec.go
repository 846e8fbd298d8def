// Package reporter prints a run as a hierarchical spec list followed by the
// failures grouped by feature and scenario.
package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/chriserin/ftspec/internal/runner"
	"github.com/chriserin/ftspec/internal/ui"
)

const featurePrefix = "Feature:"

type Options struct {
	Out   io.Writer
	Color bool
}

// Spec is the spec reporter. It implements the isolation Quieter.
type Spec struct {
	out   io.Writer
	depth int

	failures []*runner.TestResult

	elapsed func(*runner.Result) time.Duration
}

func New(opts Options) *Spec {
	out := opts.Out
	if !opts.Color {
		out = plainWriter{out}
	}
	return &Spec{
		out:     out,
		elapsed: func(r *runner.Result) time.Duration { return r.Duration },
	}
}

// BeQuiet drops all further output.
func (r *Spec) BeQuiet() {
	r.out = io.Discard
}

func (r *Spec) Attach(e *runner.Emitter) {
	e.OnSuiteStart(r.suiteStart)
	e.OnSuiteEnd(r.suiteEnd)
	e.OnTestEnd(r.testEnd)
	e.OnRunnerEnd(r.runnerEnd)
}

func (r *Spec) indent() string {
	return strings.Repeat("  ", r.depth+1)
}

// print writes s line by line without trailing blanks.
func (r *Spec) print(s string) {
	for _, line := range strings.Split(s, "\n") {
		fmt.Fprintln(r.out, strings.TrimRight(line, " "))
	}
}

// suiteStart prints the suite description. Only its first line is indented;
// later lines carry their own indentation. A leading newline already separates
// the suite from what came before.
func (r *Spec) suiteStart(s *runner.Suite) {
	desc := s.Description()
	if desc == "" {
		return
	}
	if !strings.HasPrefix(desc, featurePrefix) && !strings.HasPrefix(desc, "\n") {
		fmt.Fprintln(r.out)
	}
	r.print(r.indent() + desc)
	r.depth++
}

func (r *Spec) suiteEnd(s *runner.Suite) {
	if s.Description() == "" {
		return
	}
	r.depth--
}

func (r *Spec) testEnd(tr *runner.TestResult) {
	desc := tr.Test.Description()
	switch tr.Status {
	case runner.StatusPassed:
		fmt.Fprintln(r.out, r.indent()+ui.Pass("✓")+" "+ui.Faint(desc))
	case runner.StatusFailed:
		r.failures = append(r.failures, tr)
		fmt.Fprintln(r.out, r.indent()+ui.Fail(fmt.Sprintf("%d) %s", len(r.failures), desc)))
	case runner.StatusPending:
		fmt.Fprintln(r.out, r.indent()+ui.Pending("- "+desc))
	}
}

func (r *Spec) runnerEnd(res *runner.Result) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, ui.Pass(fmt.Sprintf("  %d passing", res.Passed()))+ui.Faint(fmt.Sprintf(" (%s)", r.elapsed(res).Round(time.Millisecond))))
	if n := res.Failed(); n > 0 {
		fmt.Fprintln(r.out, ui.Fail(fmt.Sprintf("  %d failing", n)))
	}
	if n := res.Pending(); n > 0 {
		fmt.Fprintln(r.out, ui.Pending(fmt.Sprintf("  %d pending", n)))
	}
	fmt.Fprintln(r.out)

	var last location
	for i, tr := range r.failures {
		last = r.failure(i+1, tr, last)
	}
}

// location is the feature and scenario a failure belongs to.
type location struct {
	feature  string
	scenario string
}

func locate(t *runner.Test) (loc location, test string) {
	test = reindent(t.Description())
	for s := t.Parent(); s != nil; s = s.Parent() {
		desc := reindent(s.Description())
		switch {
		case desc == "":
		case strings.HasPrefix(desc, featurePrefix):
			loc.feature = desc
		default:
			loc.scenario = strings.TrimSpace(desc)
		}
	}
	return loc, test
}

func reindent(s string) string {
	return strings.ReplaceAll(s, "\n    ", "\n   ")
}

// failure prints one numbered failure, with the feature and scenario headers
// when they differ from the previous failure's.
func (r *Spec) failure(n int, tr *runner.TestResult, last location) location {
	loc, test := locate(tr.Test)

	if loc.feature != last.feature {
		if loc.feature != "" {
			r.print("  " + loc.feature + "\n")
		}
		last = location{feature: loc.feature}
	}
	if loc.scenario != last.scenario {
		if loc.scenario != "" {
			r.print("   " + loc.scenario + "\n")
		}
		last.scenario = loc.scenario
	}

	fmt.Fprintln(r.out, ui.Fail(fmt.Sprintf("    %d) %s", n, test)))

	f := tr.Failure
	for _, line := range strings.Split("       "+strings.ReplaceAll(f.Message, "\n", "\n      "), "\n") {
		fmt.Fprintln(r.out, ui.Pending(strings.TrimRight(line, " ")))
	}

	trace := append([]runner.Frame{{Function: f.Class + " thrown", File: f.File, Line: f.Line}}, f.Trace...)
	for _, fr := range trace {
		fmt.Fprintln(r.out, ui.Faint("      # "+frame(fr)))
	}
	fmt.Fprintln(r.out)

	return last
}

func frame(fr runner.Frame) string {
	if fr.File == "" {
		return fr.Function
	}
	return fmt.Sprintf("%s:%d %s", fr.File, fr.Line, fr.Function)
}

// plainWriter strips terminal styling.
type plainWriter struct {
	w io.Writer
}

func (p plainWriter) Write(b []byte) (int, error) {
	if _, err := io.WriteString(p.w, stripansi.Strip(string(b))); err != nil {
		return 0, err
	}
	return len(b), nil
}
