// Package isolation runs the tests of suites marked Isolated in a separate
// process, so global state they change never reaches the rest of the run, and
// replays the outcome in the parent as if the tests had run locally.
//
// The parent re-executes itself with the suite path and a socket endpoint in its
// environment. The child rebuilds the same tree, runs only that suite, records
// every failure by test index and writes them to the socket before exiting. The
// parent waits for the child, reads the payload and replaces each test body with
// one that passes or raises the recorded failure.
package isolation

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chriserin/ftspec/internal/metrics"
	"github.com/chriserin/ftspec/internal/runner"
)

// LostResultPolicy decides the outcome of tests whose isolated child exited
// without reporting.
type LostResultPolicy string

const (
	PolicyFail LostResultPolicy = "fail"
	PolicyPass LostResultPolicy = "pass"
)

func ParsePolicy(s string) (LostResultPolicy, error) {
	switch p := LostResultPolicy(s); p {
	case PolicyFail, PolicyPass:
		return p, nil
	case "":
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown lost result policy %q (want %q or %q)", s, PolicyFail, PolicyPass)
	}
}

const (
	ClassLostResult = "isolation.LostResult"
)

// Quieter silences output in an isolated child.
type Quieter interface {
	BeQuiet()
}

type Options struct {
	Spawner Spawner
	Quieter Quieter

	// Child is set when this process is itself an isolated child.
	Child *Child

	// Exit terminates an isolated child once it has reported. Defaults to os.Exit.
	Exit func(code int)

	Policy  LostResultPolicy
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Coordinator struct {
	spawner Spawner
	quieter Quieter
	child   *Child
	exit    func(int)
	policy  LostResultPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics

	settled map[*runner.Suite]bool

	// child side
	target   *runner.Suite
	failures map[int]Record
	reported bool

	spawns int

	// observe, when set, sees every state transition of every cycle.
	observe func(path string, st State)
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		spawner: opts.Spawner,
		quieter: opts.Quieter,
		child:   opts.Child,
		exit:    opts.Exit,
		policy:  opts.Policy,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		settled: map[*runner.Suite]bool{},
	}
	if c.spawner == nil {
		c.spawner = ExecSpawner{Args: os.Args[1:], Stdout: os.Stdout, Stderr: os.Stderr}
	}
	if c.exit == nil {
		c.exit = os.Exit
	}
	if c.policy == "" {
		c.policy = PolicyFail
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c
}

// Attach subscribes the coordinator to suite events. It must be attached before
// any listener that inspects test definitions at suite start.
func (c *Coordinator) Attach(e *runner.Emitter) {
	// A child replays the tree from the root, so ancestor headers must not
	// reach the inherited stdout either.
	if c.child != nil && c.quieter != nil {
		c.quieter.BeQuiet()
	}
	e.OnSuiteStart(c.suiteStart)
	e.OnSuiteEnd(c.suiteEnd)
	e.OnRunnerEnd(c.runnerEnd)
}

// Spawns is the number of isolated children started so far.
func (c *Coordinator) Spawns() int {
	return c.spawns
}

func (c *Coordinator) suiteStart(s *runner.Suite) {
	if c.child != nil && c.target == nil {
		switch {
		case s.Path() == c.child.Target:
			c.capture(s)
			return
		case strings.HasPrefix(c.child.Target, s.Path()+"/"):
			return
		}
	}
	if !s.Isolated || c.settled[s] {
		return
	}
	c.isolate(s)
}

func (c *Coordinator) suiteEnd(s *runner.Suite) {
	if c.child == nil || s != c.target {
		return
	}
	c.report()
}

func (c *Coordinator) runnerEnd(*runner.Result) {
	if c.child == nil || c.reported {
		return
	}
	c.logger.Error("isolated suite never ran", zap.String("suite", c.child.Target))
	c.child.Endpoint.Close()
	c.exit(2)
}

// capture wraps every test of the target suite so its failure is recorded under
// the test's index before propagating.
func (c *Coordinator) capture(s *runner.Suite) {
	if c.quieter != nil {
		c.quieter.BeQuiet()
	}
	c.target = s
	c.failures = map[int]Record{}

	tests := s.AllTests()
	for i, test := range tests {
		test.Wrap(func(next runner.Func) runner.Func {
			return func(t *runner.T) {
				if f := t.Catch(next); f != nil {
					c.failures[i] = RecordFrom(f)
					t.Raise(f)
				}
			}
		})
	}
	c.logger.Debug("capturing isolated suite", zap.String("suite", s.Path()), zap.Int("tests", len(tests)))
}

// report writes the recorded failures and ends the child process.
func (c *Coordinator) report() {
	c.reported = true
	data, err := Encode(Payload{Failures: c.failures})
	if err != nil {
		c.logger.Error("encoding isolated results", zap.Error(err))
		c.child.Endpoint.Close()
		c.exit(1)
		return
	}
	if _, err := c.child.Endpoint.Write(data); err != nil {
		c.logger.Error("writing isolated results", zap.Error(err))
	}
	c.child.Endpoint.Close()
	c.exit(0)
}

// cycle is the parent side of one isolated suite.
type cycle struct {
	suite   *runner.Suite
	state   State
	log     *zap.Logger
	observe func(string, State)
}

func (cy *cycle) to(st State) {
	cy.state = st
	cy.log.Debug("isolation state", zap.Stringer("state", st))
	if cy.observe != nil {
		cy.observe(cy.suite.Path(), st)
	}
}

func (c *Coordinator) isolate(s *runner.Suite) {
	cy := &cycle{
		suite:   s,
		state:   StateNotStarted,
		log:     c.logger.With(zap.String("suite", s.Path())),
		observe: c.observe,
	}
	cy.to(StateNotStarted)
	tests := s.AllTests()

	ch, err := openChannel()
	if err != nil {
		c.fail(tests, err)
		c.settle(s)
		cy.to(StateDone)
		return
	}
	c.metrics.ChannelOpened(2)
	defer func() { c.metrics.ChannelClosed(ch.close()) }()

	proc, err := c.spawner.Spawn(s.Path(), ch.child)
	if err != nil {
		c.fail(tests, err)
		c.settle(s)
		cy.to(StateDone)
		return
	}
	c.spawns++
	c.metrics.RecordSpawn()
	c.metrics.ChannelClosed(ch.closeChild())
	cy.to(StateSpawned)

	if err := proc.Wait(); err != nil {
		cy.log.Warn("isolated child exited with error", zap.Error(err))
	}
	cy.to(StateCollecting)

	data, err := ch.readAll()
	c.metrics.ChannelClosed(ch.close())
	if err != nil {
		cy.log.Warn("reading isolated results", zap.Error(err))
	}

	payload, err := Decode(data)
	if err != nil {
		c.lost(cy, tests, err)
	} else {
		c.replay(tests, payload)
	}
	cy.to(StateMerged)

	c.settle(s)
	cy.to(StateDone)
}

func (c *Coordinator) replay(tests []*runner.Test, p Payload) {
	for i, test := range tests {
		rec, ok := p.Failures[i]
		if !ok {
			test.SetDefinition(noop)
			continue
		}
		test.SetDefinition(raise(rec.Failure()))
	}
}

func (c *Coordinator) lost(cy *cycle, tests []*runner.Test, reason error) {
	c.metrics.RecordLostResult()
	cy.log.Warn("isolated suite did not report", zap.Error(reason), zap.String("policy", string(c.policy)))

	if c.policy == PolicyPass {
		for _, test := range tests {
			test.SetDefinition(noop)
		}
		return
	}
	f := &runner.Failure{
		Class:   ClassLostResult,
		Message: fmt.Sprintf("isolated suite %q did not report results: %v", strings.TrimSpace(cy.suite.Description()), reason),
	}
	for _, test := range tests {
		test.SetDefinition(raise(f))
	}
}

// fail marks every test failed with an error raised before the child could run.
func (c *Coordinator) fail(tests []*runner.Test, err error) {
	c.logger.Error("isolating suite", zap.Error(err))
	f := runner.FromError(errors.Wrap(err, "isolating suite"), 0)
	for _, test := range tests {
		test.SetDefinition(raise(f))
	}
}

// settle keeps a replayed suite, and every suite inside it, from spawning again.
func (c *Coordinator) settle(s *runner.Suite) {
	c.settled[s] = true
	s.Walk(func(n runner.Node) {
		if child, ok := n.(*runner.Suite); ok {
			c.settled[child] = true
		}
	})
}

func raise(f *runner.Failure) runner.Func {
	return func(t *runner.T) {
		t.Raise(f)
	}
}

func noop(*runner.T) {}
