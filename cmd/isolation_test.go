package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/ftspec/internal/config"
	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/isolation"
	"github.com/chriserin/ftspec/internal/runner"
)

// A re-executed test binary runs the isolated catalog as the child instead
// of the test suite.
func TestMain(m *testing.M) {
	child, err := isolation.ChildFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if child != nil {
		_, _ = RunFeatures(context.Background(), os.Stdout, RunOptions{
			Catalog: isolatedCatalog(),
			Config:  isolatedConfig(),
			Child:   child,
		})
		os.Exit(3)
	}
	os.Exit(m.Run())
}

func sessionStillOpen(t *runner.T) {
	t.Errorf("session still open")
}

func isolatedCatalog() *dsl.Catalog {
	c := dsl.NewCatalog()
	must(c.Add("account", dsl.Feature("Account",
		dsl.Text(""),
		dsl.Text("As a member I manage my session"),
		dsl.Scenario("Sign in",
			dsl.Text("When they sign in"), dsl.Step(pass),
		),
		dsl.IsolatedScenario("Sign out",
			dsl.Text("When they sign out"), dsl.Step(pass),
			dsl.Text("Then the session ends"), dsl.Step(sessionStillOpen),
		),
	)))
	must(c.Add("billing", dsl.Feature("Billing",
		dsl.Scenario("Invoice",
			dsl.Text("Then an invoice is sent"), dsl.Step(pass),
		),
	)))
	return c
}

func isolatedConfig() *config.Config {
	cfg := inProcessConfig()
	cfg.Isolation.Enabled = true
	cfg.Database = ""
	return cfg
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func funcLine(fn any) int {
	pc := reflect.ValueOf(fn).Pointer()
	_, line := runtime.FuncForPC(pc).FileLine(pc)
	return line
}

func TestRunFeatures_IsolatedScenarioReportsOnce(t *testing.T) {
	inTempDir(t)
	var buf bytes.Buffer

	res, err := RunFeatures(context.Background(), &buf, RunOptions{
		Catalog: isolatedCatalog(),
		Config:  isolatedConfig(),
		Spawner: isolation.ExecSpawner{
			Path:   os.Args[0],
			Stdout: &buf,
			Stderr: os.Stderr,
		},
	})

	require.ErrorIs(t, err, ErrTestsFailed)
	assert.Equal(t, 3, res.Passed())
	assert.Equal(t, 1, res.Failed())

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "passing"), out)
	narrative := out[:strings.Index(out, "passing")]
	for _, line := range []string{
		"Feature: Account",
		"As a member I manage my session",
		"Sign out",
		"✓ When they sign out",
		"1) Then the session ends",
		"Feature: Billing",
	} {
		assert.Equal(t, 1, strings.Count(narrative, line), "%q in\n%s", line, out)
	}

	failures := res.Failures()
	require.Len(t, failures, 1)
	f := failures[0].Failure
	assert.True(t, f.Remote)
	assert.Equal(t, "session still open", f.Message)
	assert.True(t, strings.HasSuffix(f.File, "isolation_test.go"), f.File)
	assert.Equal(t, funcLine(sessionStillOpen)+1, f.Line)
}
