package gherkin

import "fmt"

type Document struct {
	Feature *Feature
}

type Feature struct {
	Header     FeatureHeader
	Background *Background
	Scenarios  []ScenarioDefinition
}

type FeatureHeader struct {
	Tags        []Tag
	Name        string
	Description []string
}

type Background struct {
	Steps []Step
}

type ScenarioDefinition struct {
	Tags     []Tag
	Scenario Scenario
	Line     int // 1-based line number of Scenario: line
}

type Scenario struct {
	Name  string
	Steps []Step
}

// HasTag reports whether the scenario carries the tag, e.g. "@isolated".
func (sd ScenarioDefinition) HasTag(name string) bool {
	for _, t := range sd.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

type Tag struct {
	Name string // e.g. "@smoke", "@isolated"
}

type Step struct {
	Keyword   string // Given, When, Then, And, But, *
	Text      string
	DocString string
	Line      int
}

type ParseError struct {
	Line    int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
