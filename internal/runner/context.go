package runner

// Context is the registration surface spec builders call into while a tree is
// being built.
type Context interface {
	AddSuite(description string, body func(Context), pending Pending, focused bool) *Suite
	AddTest(description string, fn Func, pending Pending, focused bool) *Test
	AddSetupFunction(fn Func)
	AddTearDownFunction(fn Func)
}

var _ Context = (*Tree)(nil)

// Tree builds a suite tree. Suite bodies run immediately inside AddSuite, with
// the new suite as the target of every registration they make.
type Tree struct {
	root    *Suite
	current *Suite
}

func NewTree() *Tree {
	root := newSuite("", PendingInherit, false)
	return &Tree{root: root, current: root}
}

func (tr *Tree) Root() *Suite {
	return tr.root
}

func (tr *Tree) AddSuite(description string, body func(Context), pending Pending, focused bool) *Suite {
	s := newSuite(description, pending, focused)
	tr.current.add(s)

	prev := tr.current
	tr.current = s
	defer func() { tr.current = prev }()

	if body != nil {
		body(tr)
	}
	return s
}

func (tr *Tree) AddTest(description string, fn Func, pending Pending, focused bool) *Test {
	t := &Test{description: description, definition: fn, pending: pending, focused: focused}
	tr.current.add(t)
	return t
}

func (tr *Tree) AddSetupFunction(fn Func) {
	tr.current.AddSetupFunction(fn)
}

func (tr *Tree) AddTearDownFunction(fn Func) {
	tr.current.AddTearDownFunction(fn)
}
