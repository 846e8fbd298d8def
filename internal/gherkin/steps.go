package gherkin

import (
	"fmt"
	"regexp"

	"github.com/chriserin/ftspec/internal/runner"
)

// Call is what a step definition receives: the pattern's capture groups and the
// doc string attached to the step, if any.
type Call struct {
	Args      []string
	DocString string
}

type StepFunc func(t *runner.T, c Call)

type definition struct {
	pattern *regexp.Regexp
	fn      StepFunc
}

// Steps is a library of step definitions matched against step text.
type Steps struct {
	defs []definition
}

func NewSteps() *Steps {
	return &Steps{}
}

// Define adds a step definition. The pattern must match the whole step text,
// without the keyword.
func (s *Steps) Define(pattern string, fn StepFunc) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return fmt.Errorf("compiling step pattern %q: %w", pattern, err)
	}
	s.defs = append(s.defs, definition{pattern: re, fn: fn})
	return nil
}

// MustDefine is Define for package-level step libraries.
func (s *Steps) MustDefine(pattern string, fn StepFunc) {
	if err := s.Define(pattern, fn); err != nil {
		panic(err)
	}
}

// Len is the number of definitions.
func (s *Steps) Len() int {
	return len(s.defs)
}

// bind finds the single definition matching step. It returns nil without an
// error when nothing matches.
func (s *Steps) bind(step Step) (runner.Func, error) {
	var found *definition
	var args []string
	for i := range s.defs {
		m := s.defs[i].pattern.FindStringSubmatch(step.Text)
		if m == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("step %q matches both %q and %q", step.Text, found.pattern, s.defs[i].pattern)
		}
		found, args = &s.defs[i], m[1:]
	}
	if found == nil {
		return nil, nil
	}
	fn, call := found.fn, Call{Args: args, DocString: step.DocString}
	return func(t *runner.T) {
		fn(t, call)
	}, nil
}
