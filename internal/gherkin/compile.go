package gherkin

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/runner"
)

const (
	TagIsolated = "@isolated"
	TagSkip     = "@skip"
	TagFocus    = "@focus"
)

// Compile converts a parsed document into a feature spec. Each step becomes one
// test described by its keyword and text; a step without a definition becomes a
// pending test. The background's steps run as one setup around every test.
func Compile(doc *Document, steps *Steps) (dsl.Spec, error) {
	f := doc.Feature
	if f == nil {
		return dsl.Spec{}, fmt.Errorf("document has no feature")
	}

	var args []dsl.Token
	if len(f.Header.Description) > 0 {
		args = append(args, dsl.Text(""))
		for _, d := range f.Header.Description {
			args = append(args, dsl.Text(d))
		}
	}

	if f.Background != nil && len(f.Background.Steps) > 0 {
		bg, err := compileBackground(f.Background, steps)
		if err != nil {
			return dsl.Spec{}, err
		}
		args = append(args, bg)
	}

	for _, sd := range f.Scenarios {
		var body []dsl.Token
		for _, step := range sd.Scenario.Steps {
			fn, err := steps.bind(step)
			if err != nil {
				return dsl.Spec{}, fmt.Errorf("line %d: %w", step.Line, err)
			}
			body = append(body, dsl.Text(step.Keyword+" "+step.Text))
			if fn != nil {
				body = append(body, dsl.Step(fn))
			}
		}
		args = append(args, scenarioFor(sd)(sd.Scenario.Name, body...))
	}

	build := dsl.Feature
	switch {
	case hasTag(f.Header.Tags, TagSkip):
		build = dsl.XFeature
	case hasTag(f.Header.Tags, TagFocus):
		build = dsl.FFeature
	}
	return build(f.Header.Name, args...), nil
}

func compileBackground(bg *Background, steps *Steps) (dsl.Spec, error) {
	var args []dsl.Token
	var fns []runner.Func
	for _, step := range bg.Steps {
		fn, err := steps.bind(step)
		if err != nil {
			return dsl.Spec{}, fmt.Errorf("line %d: %w", step.Line, err)
		}
		if fn == nil {
			text := step.Text
			fn = func(t *runner.T) {
				t.Fatalf("undefined background step %q", text)
			}
		}
		args = append(args, dsl.Text(step.Keyword+" "+step.Text))
		fns = append(fns, fn)
	}
	setup := func(t *runner.T) {
		for _, fn := range fns {
			fn(t)
		}
	}
	return dsl.Background(append(args, dsl.Step(setup))...), nil
}

func scenarioFor(sd ScenarioDefinition) func(string, ...dsl.Token) dsl.Spec {
	isolated := sd.HasTag(TagIsolated)
	switch {
	case sd.HasTag(TagSkip) && isolated:
		return dsl.XIsolatedScenario
	case sd.HasTag(TagSkip):
		return dsl.XScenario
	case sd.HasTag(TagFocus) && isolated:
		return dsl.FIsolatedScenario
	case sd.HasTag(TagFocus):
		return dsl.FScenario
	case isolated:
		return dsl.IsolatedScenario
	default:
		return dsl.Scenario
	}
}

func hasTag(tags []Tag, name string) bool {
	for _, t := range tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Load parses and compiles every .feature file under fsys and adds each to the
// catalog, named by its path. Files are visited in lexical order.
func Load(fsys fs.FS, catalog *dsl.Catalog, steps *Steps) (int, error) {
	loaded := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".feature" {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		doc, parseErrors := Parse(p, content)
		if len(parseErrors) > 0 {
			msgs := make([]string, len(parseErrors))
			for i, pe := range parseErrors {
				msgs[i] = pe.Error()
			}
			return fmt.Errorf("parsing %s: %s", p, strings.Join(msgs, "; "))
		}
		spec, err := Compile(doc, steps)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", p, err)
		}
		if err := catalog.Add(p, spec); err != nil {
			return err
		}
		loaded++
		return nil
	})
	return loaded, err
}
