package features

import (
	"github.com/stretchr/testify/assert"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
)

type someWorld struct {
	ready    bool
	happened bool
	tornDown int
}

var some someWorld

func SomeFeature() dsl.Spec {
	return dsl.Feature("Some Feature",
		dsl.Text(""),
		dsl.Text("In order to..."),
		dsl.Text("As a ..."),
		dsl.Text("I want to..."),
		dsl.Text(""),
		dsl.Text("Additional text..."),
		dsl.Background(
			dsl.Text("Given something"),
			dsl.Text("And something else"),
			dsl.Step(func(*runner.T) {
				some = someWorld{ready: true, tornDown: some.tornDown}
			}),
			dsl.Step(func(*runner.T) {
				some.ready = false
				some.tornDown++
			}),
		),
		dsl.Scenario("Some scenario",
			dsl.Text(""),
			dsl.Text("Given something"),
			dsl.Text("When something happens"),
			dsl.Step(func(t *runner.T) {
				assert.True(t, some.ready, "background setup ran")
				some.happened = true
			}),
			dsl.Text("Then something else happens"),
			dsl.Step(func(t *runner.T) {
				assert.True(t, some.ready, "background setup ran")
			}),
		),
	)
}
