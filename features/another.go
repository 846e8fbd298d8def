package features

import (
	"github.com/stretchr/testify/assert"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
)

// Notifier is process-wide state that AnotherFeature replaces with a spy. The
// replacement is only safe because the scenario runs isolated.
var Notifier Notify = realNotify

type Notify func(event string) bool

func realNotify(string) bool { return true }

type notifySpy struct {
	received []string
}

func (s *notifySpy) notify(event string) bool {
	s.received = append(s.received, event)
	return true
}

func makeSomethingHappen() {
	Notifier("something else")
}

var spy *notifySpy

func AnotherFeature() dsl.Spec {
	return dsl.Feature("Another Feature",
		dsl.IsolatedScenario("Some scenario",
			dsl.Text("When something happens"),
			dsl.Step(func(*runner.T) {
				spy = &notifySpy{}
				Notifier = spy.notify
				makeSomethingHappen()
			}),
			dsl.Text("Then something else happens"),
			dsl.Step(func(t *runner.T) {
				if assert.NotNil(t, spy, "spy installed") {
					assert.Equal(t, []string{"something else"}, spy.received)
				}
			}),
		),
	)
}
