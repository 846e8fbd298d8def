package reporter

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
)

func pass(*runner.T) {}

func raise(f *runner.Failure) dsl.Step {
	return dsl.Step(func(t *runner.T) { t.Raise(f) })
}

func loginFeatures() []dsl.Spec {
	dashboard := &runner.Failure{
		Class:   runner.ClassFailure,
		File:    "/src/login_steps.go",
		Line:    12,
		Message: "expected dashboard\ngot login page",
		Trace: []runner.Frame{
			{Function: "main.thenTheySeeTheDashboard", File: "/src/login_steps.go", Line: 12},
			{Function: "main.loginFeature", File: "/src/login_test.go", Line: 40},
		},
	}
	session := &runner.Failure{
		Class:   "isolation.LostResult",
		Message: "session still active",
		Remote:  true,
	}

	return []dsl.Spec{
		dsl.Feature("Login",
			dsl.Text(""),
			dsl.Text("As a user"),
			dsl.Text("I want to log in"),
			dsl.Background(dsl.Text("Given a registered user"), dsl.Step(pass)),
			dsl.Scenario("Successful login",
				dsl.Text("When they log in"), dsl.Step(pass),
				dsl.Text("Then they see the dashboard"), raise(dashboard),
			),
			dsl.Scenario("Remembered session",
				dsl.Text("Given a session cookie"),
				dsl.Text("When they return"), dsl.Step(pass),
			),
			dsl.Stories("Edge cases",
				dsl.Story(dsl.Text("As a guest"), dsl.Text("I see the login page"), dsl.Step(pass)),
				dsl.SkipNextStory(),
				dsl.Story(dsl.Text("As a locked user"), dsl.Text("I see a warning"), dsl.Step(pass)),
			),
		),
		dsl.Feature("Logout",
			dsl.Scenario("Sign out", dsl.Text("When they sign out"), raise(session)),
		),
	}
}

func report(t *testing.T, r *Spec, specs []dsl.Spec) *runner.Result {
	t.Helper()
	tr := runner.NewTree()
	for _, s := range specs {
		s.Register(tr)
	}
	e := runner.NewEmitter()
	r.Attach(e)
	return runner.New(tr.Root(), e, runner.Options{}).Run(context.Background())
}

func TestSpec_Report(t *testing.T) {
	var buf bytes.Buffer
	r := New(Options{Out: &buf})
	r.elapsed = func(*runner.Result) time.Duration { return 3 * time.Millisecond }

	res := report(t, r, loginFeatures())

	require.Equal(t, 2, res.Failed())
	g := goldie.New(t)
	g.Assert(t, "spec_report", buf.Bytes())
}

func TestSpec_BeQuietSilencesOutput(t *testing.T) {
	var buf bytes.Buffer
	r := New(Options{Out: &buf, Color: true})
	r.BeQuiet()

	report(t, r, loginFeatures())

	assert.Empty(t, buf.String())
}

func TestSpec_FailureLocation(t *testing.T) {
	tr := runner.NewTree()
	dsl.Feature("Login", dsl.Text(""), dsl.Text("As a user"),
		dsl.Stories("Edge cases", dsl.Story(dsl.Text("As a guest"), dsl.Step(pass))),
	).Register(tr)

	loc, desc := locate(tr.Root().AllTests()[0])

	assert.Equal(t, location{feature: "Feature: Login\n   As a user", scenario: "Stories: Edge cases"}, loc)
	assert.Equal(t, "As a guest", desc)
}

func TestPlainWriter_StripsStyling(t *testing.T) {
	var buf bytes.Buffer

	n, err := plainWriter{&buf}.Write([]byte("\x1b[31mfailed\x1b[0m"))

	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, "failed", buf.String())
}
