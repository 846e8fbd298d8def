package dsl

import (
	"strings"

	"github.com/chriserin/ftspec/internal/runner"
)

const featureIndent = "    "

func Feature(name string, args ...Token) Spec {
	return feature(name, runner.PendingInherit, false, args)
}

func FFeature(name string, args ...Token) Spec {
	return feature(name, runner.PendingInherit, true, args)
}

func XFeature(name string, args ...Token) Spec {
	return feature(name, runner.PendingOn, false, args)
}

// feature registers one suite titled "Feature: <name>" followed by the narrative.
// Nested specs run inside it in argument order; a marker applies to the nested
// spec right after it and never to the feature itself.
func feature(name string, pending runner.Pending, focused bool, args []Token) Spec {
	var descriptions []string
	var bodies []func(runner.Context)
	var next marks

	for _, m := range classify(args) {
		switch m.kind {
		case kindText:
			descriptions = append(descriptions, m.text)
		case kindSpec:
			descriptions = append(descriptions, m.spec.Descriptions...)
			if m.spec.Body != nil {
				bodies = append(bodies, next.apply(m.spec.Body))
			}
			next = marks{}
		case kindMarker:
			next.set(m.mark)
		}
	}

	title := featureTitle(name, descriptions)
	body := func(ctx runner.Context) {
		for _, b := range bodies {
			b(ctx)
		}
	}

	return Spec{Body: func(ctx runner.Context) {
		ctx.AddSuite(title, body, pending, focused)
	}}
}

// featureTitle appends the first description inline and every later one on its own
// indented line. An empty second description is the conventional separator between
// the name and the narrative and is left out.
func featureTitle(name string, descriptions []string) string {
	var b strings.Builder
	b.WriteString("Feature: ")
	b.WriteString(name)
	for i, d := range descriptions {
		if i == 1 && d == "" {
			continue
		}
		if i != 0 {
			b.WriteString("\n")
			b.WriteString(featureIndent)
		}
		b.WriteString(d)
	}
	return b.String()
}
