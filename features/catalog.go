// Package features holds the example feature specs compiled into the ftspec
// binary, and the step library for the plain-text .feature files next to them.
package features

import (
	"github.com/chriserin/ftspec/internal/dsl"
)

// Catalog returns the compiled-in features in registration order.
func Catalog() *dsl.Catalog {
	c := dsl.NewCatalog()
	for _, e := range []dsl.Entry{
		{Name: "some", Spec: SomeFeature()},
		{Name: "another", Spec: AnotherFeature()},
		{Name: "yet_another", Spec: YetAnotherFeature()},
	} {
		if err := c.Add(e.Name, e.Spec); err != nil {
			panic(err)
		}
	}
	return c
}
