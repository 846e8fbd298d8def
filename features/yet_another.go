package features

import (
	"reflect"

	"github.com/stretchr/testify/assert"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
)

var itHappened bool

func YetAnotherFeature() dsl.Spec {
	return dsl.Feature("Yet another feature",
		dsl.Scenario("Another scenario",
			dsl.Text("When something else happens"),
			dsl.Step(func(t *runner.T) {
				assert.Equal(t, reflect.ValueOf(realNotify).Pointer(), reflect.ValueOf(Notifier).Pointer(),
					"notifier was replaced outside an isolated scenario")
				itHappened = Notifier("something else")
			}),
			dsl.Text("Then something else should have happened"),
			dsl.Step(func(t *runner.T) {
				assert.True(t, itHappened)
			}),
		),
	)
}
