package features

import (
	"strconv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/ftspec/internal/gherkin"
	"github.com/chriserin/ftspec/internal/runner"
)

// StepSize is the process-wide increment used by "I step once". Scenarios that
// change it must be tagged @isolated.
var StepSize = 1

var counter int

// Steps returns the step library for counter.feature.
func Steps() *gherkin.Steps {
	s := gherkin.NewSteps()
	s.MustDefine(`a counter at (-?\d+)`, func(t *runner.T, c gherkin.Call) {
		counter = atoi(t, c.Args[0])
	})
	s.MustDefine(`I add (-?\d+)`, func(t *runner.T, c gherkin.Call) {
		counter += atoi(t, c.Args[0])
	})
	s.MustDefine(`I step once`, func(*runner.T, gherkin.Call) {
		counter += StepSize
	})
	s.MustDefine(`the default step size is set to (-?\d+)`, func(t *runner.T, c gherkin.Call) {
		StepSize = atoi(t, c.Args[0])
	})
	s.MustDefine(`the counter is (-?\d+)`, func(t *runner.T, c gherkin.Call) {
		assert.Equal(t, atoi(t, c.Args[0]), counter)
	})
	return s
}

func atoi(t *runner.T, s string) int {
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
