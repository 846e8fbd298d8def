package runner

import (
	"strconv"
)

// Pending is a tri-state: a node is pending, explicitly active, or inherits from its suite.
type Pending int

const (
	PendingInherit Pending = iota
	PendingOn
	PendingOff
)

// PendingFrom maps a plain flag to PendingOn or PendingInherit.
func PendingFrom(pending bool) Pending {
	if pending {
		return PendingOn
	}
	return PendingInherit
}

// Node is a Suite or a Test.
type Node interface {
	Description() string
	Parent() *Suite
}

type Suite struct {
	description string
	parent      *Suite
	path        string
	children    []Node
	pending     Pending
	focused     bool
	setups      []Func
	teardowns   []Func

	// Isolated suites run their tests in a separate process.
	Isolated bool
}

func newSuite(description string, pending Pending, focused bool) *Suite {
	return &Suite{description: description, pending: pending, focused: focused}
}

func (s *Suite) Description() string { return s.description }
func (s *Suite) Parent() *Suite      { return s.parent }
func (s *Suite) Children() []Node    { return s.children }
func (s *Suite) Focused() bool       { return s.focused }
func (s *Suite) Pending() Pending    { return s.pending }

// Path is the slash separated list of child indexes leading from the root to s.
// It is stable for a given registration sequence, so a re-executed process can
// find the same suite again.
func (s *Suite) Path() string { return s.path }

// Tests returns the direct tests of s, in order.
func (s *Suite) Tests() []*Test {
	var tests []*Test
	for _, c := range s.children {
		if t, ok := c.(*Test); ok {
			tests = append(tests, t)
		}
	}
	return tests
}

// AllTests returns every test below s in depth-first registration order.
func (s *Suite) AllTests() []*Test {
	var tests []*Test
	s.Walk(func(n Node) {
		if t, ok := n.(*Test); ok {
			tests = append(tests, t)
		}
	})
	return tests
}

// Walk visits every descendant of s depth first.
func (s *Suite) Walk(fn func(Node)) {
	for _, c := range s.children {
		fn(c)
		if child, ok := c.(*Suite); ok {
			child.Walk(fn)
		}
	}
}

func (s *Suite) AddSetupFunction(fn Func) {
	s.setups = append(s.setups, fn)
}

func (s *Suite) AddTearDownFunction(fn Func) {
	s.teardowns = append(s.teardowns, fn)
}

func (s *Suite) add(n Node) {
	i := len(s.children)
	switch n := n.(type) {
	case *Suite:
		n.parent = s
		if s.path == "" {
			n.path = strconv.Itoa(i)
		} else {
			n.path = s.path + "/" + strconv.Itoa(i)
		}
	case *Test:
		n.parent = s
	}
	s.children = append(s.children, n)
}

func (s *Suite) hasFocus() bool {
	if s.focused {
		return true
	}
	for _, c := range s.children {
		switch c := c.(type) {
		case *Suite:
			if c.hasFocus() {
				return true
			}
		case *Test:
			if c.focused {
				return true
			}
		}
	}
	return false
}

func (s *Suite) inFocus() bool {
	for n := s; n != nil; n = n.parent {
		if n.focused {
			return true
		}
	}
	return false
}

type Test struct {
	description string
	parent      *Suite
	definition  Func
	wrappers    []func(Func) Func
	pending     Pending
	focused     bool
}

func (t *Test) Description() string { return t.description }

// Parent is a back reference used to walk up the tree while reporting.
func (t *Test) Parent() *Suite { return t.parent }

func (t *Test) Focused() bool         { return t.focused }
func (t *Test) Definition() Func      { return t.definition }
func (t *Test) SetDefinition(fn Func) { t.definition = fn }

// Wrap installs middleware around the definition. Wrappers survive later calls
// to SetDefinition and the most recently added wrapper runs outermost.
func (t *Test) Wrap(w func(Func) Func) {
	t.wrappers = append(t.wrappers, w)
}

// IsPending resolves the pending tri-state against the enclosing suites.
func (t *Test) IsPending() bool {
	if t.pending != PendingInherit {
		return t.pending == PendingOn
	}
	for s := t.parent; s != nil; s = s.parent {
		if s.pending != PendingInherit {
			return s.pending == PendingOn
		}
	}
	return false
}

func (t *Test) inFocus() bool {
	return t.focused || (t.parent != nil && t.parent.inFocus())
}

func (t *Test) body() Func {
	fn := t.definition
	for _, w := range t.wrappers {
		fn = w(fn)
	}
	return fn
}
