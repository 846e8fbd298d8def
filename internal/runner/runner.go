package runner

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of a single test.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

type TestResult struct {
	Test     *Test
	Status   Status
	Failure  *Failure
	Duration time.Duration
}

// Result collects every reported test of a run, in execution order.
type Result struct {
	Tests    []*TestResult
	Duration time.Duration
}

func (r *Result) count(s Status) int {
	n := 0
	for _, tr := range r.Tests {
		if tr.Status == s {
			n++
		}
	}
	return n
}

func (r *Result) Passed() int  { return r.count(StatusPassed) }
func (r *Result) Failed() int  { return r.count(StatusFailed) }
func (r *Result) Pending() int { return r.count(StatusPending) }

// Failures returns the failed results in execution order.
func (r *Result) Failures() []*TestResult {
	var out []*TestResult
	for _, tr := range r.Tests {
		if tr.Status == StatusFailed {
			out = append(out, tr)
		}
	}
	return out
}

type Options struct {
	// Scope limits the run to the suite with this path. Empty runs everything.
	Scope  string
	Logger *zap.Logger
}

type Runner struct {
	root    *Suite
	emitter *Emitter
	scope   string
	logger  *zap.Logger
	now     func() time.Time
}

func New(root *Suite, emitter *Emitter, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = NewEmitter()
	}
	return &Runner{
		root:    root,
		emitter: emitter,
		scope:   opts.Scope,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the tree depth first in registration order.
func (r *Runner) Run(ctx context.Context) *Result {
	res := &Result{}
	start := r.now()

	r.emitter.emitRunnerStart()
	r.runSuite(ctx, r.root, r.root.hasFocus(), res)
	res.Duration = r.now().Sub(start)
	r.emitter.emitRunnerEnd(res)

	return res
}

func (r *Runner) runSuite(ctx context.Context, s *Suite, focusMode bool, res *Result) {
	if !r.suiteInScope(s) {
		return
	}
	if focusMode && !s.inFocus() && !s.hasFocus() {
		return
	}

	isRoot := s == r.root
	if !isRoot {
		r.logger.Debug("suite start", zap.String("suite", s.path), zap.Bool("isolated", s.Isolated))
		r.emitter.emitSuiteStart(s)
	}

	for _, c := range s.children {
		if ctx.Err() != nil {
			break
		}
		switch c := c.(type) {
		case *Suite:
			r.runSuite(ctx, c, focusMode, res)
		case *Test:
			if !r.testInScope(c) {
				continue
			}
			if focusMode && !c.inFocus() {
				continue
			}
			tr := r.runTest(c)
			res.Tests = append(res.Tests, tr)
			r.emitter.emitTestEnd(tr)
		}
	}

	if !isRoot {
		r.emitter.emitSuiteEnd(s)
	}
}

func (r *Runner) runTest(test *Test) *TestResult {
	if test.IsPending() {
		return &TestResult{Test: test, Status: StatusPending}
	}

	var chain []*Suite
	for s := test.parent; s != nil; s = s.parent {
		chain = append(chain, s)
	}

	t := newT()
	start := r.now()

	setupFailed := false
	for i := len(chain) - 1; i >= 0 && !setupFailed; i-- {
		for _, fn := range chain[i].setups {
			if t.Catch(fn) != nil {
				setupFailed = true
				break
			}
		}
	}
	if !setupFailed {
		t.Catch(test.body())
	}
	for _, s := range chain {
		for _, fn := range s.teardowns {
			t.Catch(fn)
		}
	}

	tr := &TestResult{Test: test, Status: StatusPassed, Duration: r.now().Sub(start)}
	if f := t.Failure(); f != nil {
		tr.Status = StatusFailed
		tr.Failure = f
		r.logger.Debug("test failed", zap.String("test", test.description), zap.String("class", f.Class))
	}
	return tr
}

func (r *Runner) suiteInScope(s *Suite) bool {
	if r.scope == "" || s.path == "" || s.path == r.scope {
		return true
	}
	return strings.HasPrefix(r.scope, s.path+"/") || strings.HasPrefix(s.path, r.scope+"/")
}

func (r *Runner) testInScope(t *Test) bool {
	if r.scope == "" {
		return true
	}
	p := t.parent.path
	return p == r.scope || strings.HasPrefix(p, r.scope+"/")
}
