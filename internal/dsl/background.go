package dsl

import (
	"github.com/chriserin/ftspec/internal/runner"
)

// Fixture is a composed background: its display lines and the setup and teardown
// that run around every test of the suite it belongs to.
type Fixture struct {
	Descriptions []string
	Setup        runner.Func
	Teardown     runner.Func
}

// Background composes a fixture. The first run of Text arguments becomes the
// display lines, the first Step the setup and the second Step the teardown.
//
// Inside a feature the returned spec registers setup and teardown as hooks of the
// feature suite. Inside a scenario it wraps each of the scenario's tests instead.
func Background(args ...Token) Spec {
	fx := &Fixture{}
	closed := false
	for _, m := range classify(args) {
		switch m.kind {
		case kindText:
			if closed {
				continue
			}
			if len(fx.Descriptions) == 0 {
				fx.Descriptions = append(fx.Descriptions, "", "Background:")
			}
			fx.Descriptions = append(fx.Descriptions, "  "+m.text)
		case kindStep:
			closed = closed || len(fx.Descriptions) > 0
			if fx.Setup == nil {
				fx.Setup = m.step
			} else if fx.Teardown == nil {
				fx.Teardown = m.step
			}
		}
	}
	return Spec{Descriptions: fx.Descriptions, Body: fx.register, fixture: fx}
}

func (fx *Fixture) register(ctx runner.Context) {
	if fx.Setup != nil {
		ctx.AddSetupFunction(fx.Setup)
	}
	if fx.Teardown != nil {
		ctx.AddTearDownFunction(fx.Teardown)
	}
}

// wrap runs setup, then body, then teardown. Teardown runs even when setup or
// body fail, and the earliest failure is the one reported.
func (fx *Fixture) wrap(body runner.Func) runner.Func {
	return func(t *runner.T) {
		failure := t.Catch(fx.Setup)
		if failure == nil {
			failure = t.Catch(body)
		}
		if f := t.Catch(fx.Teardown); failure == nil {
			failure = f
		}
		if failure != nil {
			t.Raise(failure)
		}
	}
}
