// Package dsl builds gherkin-style suite trees from positional builder arguments.
//
// Every builder takes a list of Tokens. Plain prose is passed as Text, step bodies
// as Step, nested builder output (Background, Scenario, Story, ...) as Spec, and the
// one-shot FocusNextStory/SkipNextStory markers as Marker:
//
//	dsl.Feature("Login",
//		dsl.Text(""),
//		dsl.Text("As a user"),
//		dsl.Background(dsl.Text("Given a registered user"), dsl.Step(createUser)),
//		dsl.Scenario("Successful login",
//			dsl.Text("When they log in"), dsl.Step(logIn),
//			dsl.Text("Then they see the dashboard"), dsl.Step(seeDashboard),
//		),
//	)
//
// Builders never fail. Arguments that do not fit where they appear are dropped, and
// a description without a step becomes a pending test.
package dsl

import (
	"github.com/chriserin/ftspec/internal/runner"
)

// Token is one positional builder argument.
type Token interface {
	token()
}

// Text is a description line.
type Text string

// Step is a test body.
type Step runner.Func

// Spec is a nested descriptor: description lines spliced into the caller plus a
// body run against the registration context. Every builder returns one.
type Spec struct {
	Descriptions []string
	Body         func(runner.Context)

	fixture *Fixture
}

// Marker affects the next test or nested spec only.
type Marker struct {
	Kind string
}

const (
	MarkFocus = "focus"
	MarkSkip  = "skip"
)

func (Text) token()   {}
func (Step) token()   {}
func (Spec) token()   {}
func (Marker) token() {}

// Register invokes the spec body against ctx.
func (s Spec) Register(ctx runner.Context) {
	if s.Body != nil {
		s.Body(ctx)
	}
}

// Fixture returns the background carried by s, or nil.
func (s Spec) Fixture() *Fixture {
	return s.fixture
}

func FocusNextStory() Marker { return Marker{Kind: MarkFocus} }
func SkipNextStory() Marker  { return Marker{Kind: MarkSkip} }

type kind int

const (
	kindText kind = iota + 1
	kindStep
	kindSpec
	kindMarker
)

type match struct {
	kind kind
	text string
	step runner.Func
	spec Spec
	mark string
}

// classify looks at each argument on its own, in order. Shapes that carry
// nothing usable (nil steps, empty specs, unknown markers) are dropped.
func classify(args []Token) []match {
	out := make([]match, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case Text:
			out = append(out, match{kind: kindText, text: string(a)})
		case Step:
			if a != nil {
				out = append(out, match{kind: kindStep, step: runner.Func(a)})
			}
		case Spec:
			if a.Body != nil || len(a.Descriptions) > 0 || a.fixture != nil {
				out = append(out, match{kind: kindSpec, spec: a})
			}
		case Marker:
			if a.Kind == MarkFocus || a.Kind == MarkSkip {
				out = append(out, match{kind: kindMarker, mark: a.Kind})
			}
		}
	}
	return out
}

// marks holds the one-shot markers waiting for the next test.
type marks struct {
	focus bool
	skip  bool
}

func (m *marks) set(kind string) {
	switch kind {
	case MarkFocus:
		m.focus = true
	case MarkSkip:
		m.skip = true
	}
}

func (m marks) empty() bool {
	return !m.focus && !m.skip
}

// apply makes the first node registered by body pending and/or focused.
func (m marks) apply(body func(runner.Context)) func(runner.Context) {
	if m.empty() {
		return body
	}
	return func(ctx runner.Context) {
		body(&markedContext{Context: ctx, marks: m})
	}
}

type markedContext struct {
	runner.Context
	marks marks
	used  bool
}

func (c *markedContext) override(pending runner.Pending, focused bool) (runner.Pending, bool) {
	if c.used {
		return pending, focused
	}
	c.used = true
	if c.marks.skip {
		pending = runner.PendingOn
	}
	return pending, focused || c.marks.focus
}

func (c *markedContext) AddSuite(description string, body func(runner.Context), pending runner.Pending, focused bool) *runner.Suite {
	pending, focused = c.override(pending, focused)
	return c.Context.AddSuite(description, body, pending, focused)
}

func (c *markedContext) AddTest(description string, fn runner.Func, pending runner.Pending, focused bool) *runner.Test {
	pending, focused = c.override(pending, focused)
	return c.Context.AddTest(description, fn, pending, focused)
}

func noop(*runner.T) {}
