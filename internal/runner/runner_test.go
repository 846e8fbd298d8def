package runner

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, tr *Tree) *Result {
	t.Helper()
	return New(tr.Root(), nil, Options{}).Run(context.Background())
}

func statuses(res *Result) map[string]Status {
	out := map[string]Status{}
	for _, r := range res.Tests {
		out[r.Test.Description()] = r.Status
	}
	return out
}

func funcLine(fn any) int {
	pc := reflect.ValueOf(fn).Pointer()
	_, line := runtime.FuncForPC(pc).FileLine(pc)
	return line
}

func failWithFatalf(t *T) {
	t.Fatalf("boom %d", 1)
}

func TestRun_PassFailPending(t *testing.T) {
	tr := NewTree()
	tr.AddSuite("suite", func(ctx Context) {
		ctx.AddTest("passes", func(t *T) {}, PendingInherit, false)
		ctx.AddTest("fails", failWithFatalf, PendingInherit, false)
		ctx.AddTest("pending", func(t *T) { t.Fatal("never") }, PendingOn, false)
	}, PendingInherit, false)

	res := run(t, tr)

	assert.Equal(t, map[string]Status{
		"passes":  StatusPassed,
		"fails":   StatusFailed,
		"pending": StatusPending,
	}, statuses(res))
	assert.Equal(t, 1, res.Passed())
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, 1, res.Pending())
}

func TestRun_FailureLocationIsCallSite(t *testing.T) {
	tr := NewTree()
	tr.AddTest("fails", failWithFatalf, PendingInherit, false)

	res := run(t, tr)

	require.Len(t, res.Failures(), 1)
	f := res.Failures()[0].Failure
	assert.Equal(t, "boom 1", f.Message)
	assert.Equal(t, ClassFailure, f.Class)
	assert.True(t, strings.HasSuffix(f.File, "runner_test.go"), f.File)
	assert.Equal(t, funcLine(failWithFatalf)+1, f.Line)
	require.NotEmpty(t, f.Trace)
	assert.Contains(t, f.Trace[0].Function, "failWithFatalf")
}

func panicsWithString(t *T) {
	panic("kaboom")
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	tr := NewTree()
	tr.AddTest("panics", panicsWithString, PendingInherit, false)

	res := run(t, tr)

	require.Len(t, res.Failures(), 1)
	f := res.Failures()[0].Failure
	assert.Equal(t, "kaboom", f.Message)
	assert.Equal(t, "string", f.Class)
	assert.Equal(t, funcLine(panicsWithString)+1, f.Line)
}

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() int     { return 42 }

func TestRun_ErrorCodeAndStack(t *testing.T) {
	tr := NewTree()
	tr.AddTest("wrapped", func(t *T) {
		t.Fatal(errors.Wrap(codedError{}, "context"))
	}, PendingInherit, false)

	res := run(t, tr)

	require.Len(t, res.Failures(), 1)
	f := res.Failures()[0].Failure
	assert.Equal(t, "context: coded", f.Message)
	assert.Equal(t, "runner.codedError", f.Class)
	assert.Equal(t, 42, f.Code)
	assert.True(t, strings.HasSuffix(f.File, "runner_test.go"), f.File)
}

func TestRun_TestifyAssertionsRecordFailure(t *testing.T) {
	tr := NewTree()
	tr.AddTest("asserts", func(t *T) {
		require.Equal(t, 1, 2)
	}, PendingInherit, false)

	res := run(t, tr)

	require.Len(t, res.Failures(), 1)
	f := res.Failures()[0].Failure
	assert.Contains(t, f.Message, "Not equal")
	assert.True(t, strings.HasSuffix(f.File, "runner_test.go"), f.File)
}

func TestRun_RaisePreservesFailure(t *testing.T) {
	remote := &Failure{Class: "RuntimeException", Code: 7, File: "/elsewhere.go", Line: 12, Message: "remote", Remote: true}
	tr := NewTree()
	tr.AddTest("raises", func(t *T) { t.Raise(remote) }, PendingInherit, false)

	res := run(t, tr)

	require.Len(t, res.Failures(), 1)
	assert.Same(t, remote, res.Failures()[0].Failure)
}

func TestRun_PendingInheritance(t *testing.T) {
	tr := NewTree()
	tr.AddSuite("pending suite", func(ctx Context) {
		ctx.AddTest("inherits", func(t *T) {}, PendingInherit, false)
		ctx.AddTest("overrides", func(t *T) {}, PendingOff, false)
		ctx.AddSuite("nested", func(ctx Context) {
			ctx.AddTest("deep", func(t *T) {}, PendingInherit, false)
		}, PendingInherit, false)
	}, PendingOn, false)

	res := run(t, tr)

	assert.Equal(t, map[string]Status{
		"inherits":  StatusPending,
		"overrides": StatusPassed,
		"deep":      StatusPending,
	}, statuses(res))
}

func TestRun_FocusRunsOnlyFocusedNodes(t *testing.T) {
	tr := NewTree()
	tr.AddSuite("plain", func(ctx Context) {
		ctx.AddTest("ignored", func(t *T) {}, PendingInherit, false)
		ctx.AddTest("focused test", func(t *T) {}, PendingInherit, true)
	}, PendingInherit, false)
	tr.AddSuite("focused suite", func(ctx Context) {
		ctx.AddTest("inside", func(t *T) {}, PendingInherit, false)
	}, PendingInherit, true)

	res := run(t, tr)

	assert.Equal(t, map[string]Status{
		"focused test": StatusPassed,
		"inside":       StatusPassed,
	}, statuses(res))
}

func TestRun_HooksWrapEveryTest(t *testing.T) {
	var calls []string
	tr := NewTree()
	tr.AddSuite("outer", func(ctx Context) {
		ctx.AddSetupFunction(func(t *T) { calls = append(calls, "outer setup") })
		ctx.AddTearDownFunction(func(t *T) { calls = append(calls, "outer teardown") })
		ctx.AddSuite("inner", func(ctx Context) {
			ctx.AddSetupFunction(func(t *T) { calls = append(calls, "inner setup") })
			ctx.AddTearDownFunction(func(t *T) { calls = append(calls, "inner teardown") })
			ctx.AddTest("test", func(t *T) { calls = append(calls, "body") }, PendingInherit, false)
		}, PendingInherit, false)
	}, PendingInherit, false)

	run(t, tr)

	assert.Equal(t, []string{"outer setup", "inner setup", "body", "inner teardown", "outer teardown"}, calls)
}

func TestRun_TeardownRunsWhenSetupFails(t *testing.T) {
	var calls []string
	tr := NewTree()
	tr.AddSuite("suite", func(ctx Context) {
		ctx.AddSetupFunction(func(t *T) { t.Fatal("setup broke") })
		ctx.AddTearDownFunction(func(t *T) { calls = append(calls, "teardown") })
		ctx.AddTest("test", func(t *T) { calls = append(calls, "body") }, PendingInherit, false)
	}, PendingInherit, false)

	res := run(t, tr)

	assert.Equal(t, []string{"teardown"}, calls)
	require.Len(t, res.Failures(), 1)
	assert.Equal(t, "setup broke", res.Failures()[0].Failure.Message)
}

func TestRun_ScopeLimitsExecution(t *testing.T) {
	var ran []string
	body := func(name string) Func {
		return func(t *T) { ran = append(ran, name) }
	}
	tr := NewTree()
	tr.AddSuite("a", func(ctx Context) {
		ctx.AddTest("a1", body("a1"), PendingInherit, false)
		ctx.AddSuite("b", func(ctx Context) {
			ctx.AddTest("b1", body("b1"), PendingInherit, false)
		}, PendingInherit, false)
	}, PendingInherit, false)
	tr.AddSuite("c", func(ctx Context) {
		ctx.AddTest("c1", body("c1"), PendingInherit, false)
	}, PendingInherit, false)

	New(tr.Root(), nil, Options{Scope: "0/1"}).Run(context.Background())

	assert.Equal(t, []string{"b1"}, ran)
}

func TestRun_EmitsSuiteEventsInOrder(t *testing.T) {
	var events []string
	e := NewEmitter()
	e.OnSuiteStart(func(s *Suite) { events = append(events, "start "+s.Description()) })
	e.OnSuiteEnd(func(s *Suite) { events = append(events, "end "+s.Description()) })
	e.OnTestEnd(func(r *TestResult) { events = append(events, r.Status.String()+" "+r.Test.Description()) })

	tr := NewTree()
	tr.AddSuite("outer", func(ctx Context) {
		ctx.AddSuite("inner", func(ctx Context) {
			ctx.AddTest("t", func(t *T) {}, PendingInherit, false)
		}, PendingInherit, false)
	}, PendingInherit, false)

	New(tr.Root(), e, Options{}).Run(context.Background())

	assert.Equal(t, []string{"start outer", "start inner", "passed t", "end inner", "end outer"}, events)
}

func TestRun_SuiteStartCanReplaceDefinitions(t *testing.T) {
	e := NewEmitter()
	e.OnSuiteStart(func(s *Suite) {
		for _, test := range s.Tests() {
			test.SetDefinition(func(t *T) {})
		}
	})

	tr := NewTree()
	tr.AddSuite("suite", func(ctx Context) {
		ctx.AddTest("t", func(t *T) { t.Fatal("original") }, PendingInherit, false)
	}, PendingInherit, false)

	res := New(tr.Root(), e, Options{}).Run(context.Background())

	assert.Equal(t, 1, res.Passed())
}

func TestRun_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := NewTree()
	tr.AddTest("first", func(t *T) { cancel() }, PendingInherit, false)
	tr.AddTest("second", func(t *T) {}, PendingInherit, false)

	res := New(tr.Root(), nil, Options{}).Run(ctx)

	require.Len(t, res.Tests, 1)
	assert.Equal(t, "first", res.Tests[0].Test.Description())
}

func TestSuite_Paths(t *testing.T) {
	tr := NewTree()
	var inner *Suite
	outer := tr.AddSuite("outer", func(ctx Context) {
		ctx.AddTest("t", nil, PendingInherit, false)
		inner = ctx.AddSuite("inner", nil, PendingInherit, false)
	}, PendingInherit, false)
	second := tr.AddSuite("second", nil, PendingInherit, false)

	assert.Equal(t, "", tr.Root().Path())
	assert.Equal(t, "0", outer.Path())
	assert.Equal(t, "0/1", inner.Path())
	assert.Equal(t, "1", second.Path())
	assert.Same(t, outer, inner.Parent())
}

func TestTest_WrappersSurviveSetDefinition(t *testing.T) {
	var calls []string
	tr := NewTree()
	test := tr.AddTest("t", func(t *T) { calls = append(calls, "original") }, PendingInherit, false)
	test.Wrap(func(next Func) Func {
		return func(t *T) {
			calls = append(calls, "wrapper")
			next(t)
		}
	})
	test.SetDefinition(func(t *T) { calls = append(calls, "replacement") })

	run(t, tr)

	assert.Equal(t, []string{"wrapper", "replacement"}, calls)
}
