package dsl

import (
	"strings"

	"github.com/chriserin/ftspec/internal/runner"
)

const (
	scenarioHeader = "Scenario:"
	storiesHeader  = "Stories:"
)

func Scenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingInherit, false, false, args)
}

func FScenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingInherit, true, false, args)
}

func XScenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingOn, false, false, args)
}

// IsolatedScenario runs the scenario's tests in a separate process so global state
// they change does not leak into the rest of the run.
func IsolatedScenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingInherit, false, true, args)
}

func FIsolatedScenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingInherit, true, true, args)
}

func XIsolatedScenario(title string, args ...Token) Spec {
	return scenario(scenarioHeader, title, runner.PendingOn, false, true, args)
}

// Stories is a scenario whose tests are independent stories. FocusNextStory and
// SkipNextStory select single entries.
func Stories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingInherit, false, false, args)
}

func FStories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingInherit, true, false, args)
}

func XStories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingOn, false, false, args)
}

func IsolatedStories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingInherit, false, true, args)
}

func FIsolatedStories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingInherit, true, true, args)
}

func XIsolatedStories(title string, args ...Token) Spec {
	return scenario(storiesHeader, title, runner.PendingOn, false, true, args)
}

func scenario(header, title string, pending runner.Pending, focused, isolated bool, args []Token) Spec {
	b := &scenarioBuilder{}
	for _, m := range classify(args) {
		b.accept(m)
	}
	b.finish()

	heading := "\n" + featureIndent + header + " " + title
	return Spec{Body: func(ctx runner.Context) {
		suite := ctx.AddSuite(heading, b.register, pending, focused)
		suite.Isolated = isolated
	}}
}

type entry struct {
	description string
	body        runner.Func
	pending     bool
	focused     bool

	// display entries only echo background lines in the report.
	display bool
	nested  func(runner.Context)
}

// scenarioBuilder pairs descriptions with the steps that follow them. An open
// description is closed by the next step, or as pending by the next description
// or the end of the arguments.
type scenarioBuilder struct {
	entries     []entry
	description string
	open        bool
	next        marks
	fixture     *Fixture
}

func (b *scenarioBuilder) accept(m match) {
	switch m.kind {
	case kindText:
		if m.text == "" {
			return
		}
		if b.open {
			b.closePending()
		}
		b.description, b.open = m.text, true
	case kindStep:
		if !b.open {
			return
		}
		b.entries = append(b.entries, entry{
			description: b.description,
			body:        m.step,
			pending:     b.next.skip,
			focused:     b.next.focus,
		})
		b.open = false
		b.next = marks{}
	case kindMarker:
		b.next.set(m.mark)
	case kindSpec:
		if fx := m.spec.fixture; fx != nil {
			b.addBackground(fx)
			return
		}
		if m.spec.Body != nil {
			b.entries = append(b.entries, entry{nested: b.next.apply(m.spec.Body)})
			b.next = marks{}
		}
	}
}

// addBackground keeps the first background only. Its step lines are echoed as
// passing display entries so the report shows them.
func (b *scenarioBuilder) addBackground(fx *Fixture) {
	if b.fixture != nil {
		return
	}
	b.fixture = fx
	for i, line := range fx.Descriptions {
		line = strings.TrimSpace(line)
		if i < 2 || line == "" {
			continue
		}
		b.entries = append(b.entries, entry{description: "Background: " + line, body: noop, display: true})
	}
}

func (b *scenarioBuilder) closePending() {
	b.entries = append(b.entries, entry{description: b.description, body: noop, pending: true})
	b.open = false
}

func (b *scenarioBuilder) finish() {
	if b.open {
		b.closePending()
	}
}

func (b *scenarioBuilder) register(ctx runner.Context) {
	for _, e := range b.entries {
		if e.nested != nil {
			e.nested(ctx)
			continue
		}
		body := e.body
		if b.fixture != nil && !e.display {
			body = b.fixture.wrap(body)
		}
		ctx.AddTest(e.description, body, runner.PendingFrom(e.pending), e.focused)
	}
}
