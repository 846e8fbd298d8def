package dsl

import (
	"strings"

	"github.com/chriserin/ftspec/internal/runner"
)

func Story(args ...Token) Spec {
	return story(runner.PendingInherit, false, false, args)
}

func FStory(args ...Token) Spec {
	return story(runner.PendingInherit, true, false, args)
}

func XStory(args ...Token) Spec {
	return story(runner.PendingOn, false, false, args)
}

func IsolatedStory(args ...Token) Spec {
	return story(runner.PendingInherit, false, true, args)
}

func FIsolatedStory(args ...Token) Spec {
	return story(runner.PendingInherit, true, true, args)
}

func XIsolatedStory(args ...Token) Spec {
	return story(runner.PendingOn, false, true, args)
}

// story registers a single test inside an untitled suite. The title is every
// non-empty Text joined with spaces and the body is the first Step. A story
// without a step is pending.
func story(pending runner.Pending, focused, isolated bool, args []Token) Spec {
	var words []string
	var body runner.Func
	var fixture *Fixture

	for _, m := range classify(args) {
		switch m.kind {
		case kindText:
			if m.text != "" {
				words = append(words, m.text)
			}
		case kindStep:
			if body == nil {
				body = m.step
			}
		case kindSpec:
			if fixture == nil {
				fixture = m.spec.fixture
			}
		}
	}

	if body == nil {
		body, pending = noop, runner.PendingOn
	} else if fixture != nil {
		body = fixture.wrap(body)
	}
	title := strings.Join(words, " ")

	return Spec{Body: func(ctx runner.Context) {
		suite := ctx.AddSuite("", func(ctx runner.Context) {
			ctx.AddTest(title, body, pending, focused)
		}, runner.PendingInherit, false)
		suite.Isolated = isolated
	}}
}
