package dsl

import (
	"fmt"
	"path"

	"github.com/chriserin/ftspec/internal/runner"
)

// Entry is one named feature definition, for example "login.feature".
type Entry struct {
	Name string
	Spec Spec
}

// Catalog is the ordered set of feature definitions a binary knows about.
// Registration order is preserved so suite paths stay stable between the
// parent process and an isolated child.
type Catalog struct {
	entries []Entry
	names   map[string]bool
}

func NewCatalog() *Catalog {
	return &Catalog{names: map[string]bool{}}
}

// Add appends a feature under name. Names must be unique.
func (c *Catalog) Add(name string, spec Spec) error {
	if name == "" {
		return fmt.Errorf("feature name is empty")
	}
	if c.names[name] {
		return fmt.Errorf("feature %q already registered", name)
	}
	c.names[name] = true
	c.entries = append(c.entries, Entry{Name: name, Spec: spec})
	return nil
}

func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Match returns the entries whose name matches the shell glob pattern. An empty
// pattern matches everything.
func (c *Catalog) Match(pattern string) ([]Entry, error) {
	if pattern == "" {
		return c.entries, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var out []Entry
	for _, e := range c.entries {
		if ok, _ := path.Match(pattern, e.Name); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Build registers every entry matching pattern on ctx and returns how many
// were registered.
func (c *Catalog) Build(ctx runner.Context, pattern string) (int, error) {
	entries, err := c.Match(pattern)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		e.Spec.Register(ctx)
	}
	return len(entries), nil
}
