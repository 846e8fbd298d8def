// Package gherkin reads plain-text .feature files and compiles them into dsl
// specs whose steps are bound from a step library.
package gherkin

import (
	"path"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`@[^@\s]+`)

var stepKeywords = []string{"Given ", "When ", "Then ", "And ", "But ", "* "}

// Parse parses a .feature file and returns a Document AST and any parse errors.
func Parse(filename string, content []byte) (*Document, []ParseError) {
	lines := strings.Split(string(content), "\n")
	var errors []ParseError

	doc := &Document{}
	feature := &Feature{}
	doc.Feature = feature

	i := 0

	// Skip leading blanks and comments
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		break
	}

	var featureTags []Tag
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if isTagLine(trimmed) {
			featureTags = append(featureTags, parseTags(trimmed)...)
			i++
			continue
		}
		break
	}
	feature.Header.Tags = featureTags

	if i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "Feature:") {
		feature.Header.Name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "Feature:"))
		i++

		// Narrative lines until keyword or tag
		for i < len(lines) {
			trimmed := strings.TrimSpace(lines[i])
			if isKeyword(trimmed) || isTagLine(trimmed) {
				break
			}
			feature.Header.Description = append(feature.Header.Description, trimmed)
			i++
		}
		feature.Header.Description = trimBlank(feature.Header.Description)
	} else {
		feature.Header.Name = filenameWithoutExt(filename)
	}

	var pendingTags []Tag
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			i++

		case isDocStringDelimiter(trimmed):
			i = skipDocString(lines, i)

		case isTagLine(trimmed):
			pendingTags = append(pendingTags, parseTags(trimmed)...)
			i++

		case strings.HasPrefix(trimmed, "Background:"):
			pendingTags = nil // Background doesn't get tags
			bg := &Background{}
			bg.Steps, i = consumeSteps(lines, i+1, &errors)
			if feature.Background != nil {
				errors = append(errors, ParseError{Line: i, Message: "only one Background is allowed"})
				continue
			}
			feature.Background = bg

		case strings.HasPrefix(trimmed, "Scenario:"):
			sd := ScenarioDefinition{
				Tags:     pendingTags,
				Scenario: Scenario{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "Scenario:"))},
				Line:     i + 1,
			}
			pendingTags = nil
			sd.Scenario.Steps, i = consumeSteps(lines, i+1, &errors)
			feature.Scenarios = append(feature.Scenarios, sd)

		case strings.HasPrefix(trimmed, "Scenario Outline:"):
			errors = append(errors, ParseError{Line: i + 1, Message: "Scenario Outline is not supported"})
			i = consumeBlock(lines, i+1)

		case strings.HasPrefix(trimmed, "Rule:"):
			errors = append(errors, ParseError{Line: i + 1, Message: "Rule is not supported"})
			i = consumeBlock(lines, i+1)

		case strings.HasPrefix(trimmed, "Examples:"):
			errors = append(errors, ParseError{Line: i + 1, Message: "Examples is not supported"})
			i = consumeBlock(lines, i+1)

		default:
			errors = append(errors, ParseError{Line: i + 1, Message: "unexpected line outside a scenario: " + trimmed})
			i++
		}
	}

	return doc, errors
}

// consumeSteps reads step lines, each optionally followed by a doc string, until
// the next keyword, a tag line that precedes one, or EOF.
func consumeSteps(lines []string, i int, errors *[]ParseError) ([]Step, int) {
	var steps []Step
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		switch {
		case t == "" || strings.HasPrefix(t, "#"):
			i++
		case isKeyword(t):
			return steps, i
		case isTagLine(t) && tagPrecedesKeyword(lines, i):
			return steps, i
		case isDocStringDelimiter(t):
			end := skipDocString(lines, i)
			if len(steps) == 0 {
				*errors = append(*errors, ParseError{Line: i + 1, Message: "doc string without a step"})
			} else {
				steps[len(steps)-1].DocString = docStringContent(lines, i, end)
			}
			i = end
		default:
			step, ok := parseStep(t)
			if !ok {
				*errors = append(*errors, ParseError{Line: i + 1, Message: "expected a step: " + t})
				i++
				continue
			}
			step.Line = i + 1
			steps = append(steps, step)
			i++
		}
	}
	return steps, i
}

func parseStep(trimmed string) (Step, bool) {
	for _, kw := range stepKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return Step{
				Keyword: strings.TrimSpace(kw),
				Text:    strings.TrimSpace(strings.TrimPrefix(trimmed, kw)),
			}, true
		}
	}
	return Step{}, false
}

func parseTags(line string) []Tag {
	matches := tagPattern.FindAllString(line, -1)
	var tags []Tag
	for _, m := range matches {
		tags = append(tags, Tag{Name: m})
	}
	return tags
}

func isTagLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "@")
}

func isKeyword(trimmed string) bool {
	return strings.HasPrefix(trimmed, "Feature:") ||
		strings.HasPrefix(trimmed, "Background:") ||
		strings.HasPrefix(trimmed, "Scenario:") ||
		strings.HasPrefix(trimmed, "Scenario Outline:") ||
		strings.HasPrefix(trimmed, "Rule:") ||
		strings.HasPrefix(trimmed, "Examples:")
}

func isDocStringDelimiter(trimmed string) bool {
	return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "```")
}

// skipDocString advances past a doc string block. i points at the opening delimiter.
// Returns the index of the line after the closing delimiter.
func skipDocString(lines []string, i int) int {
	delimiter := `"""`
	if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
		delimiter = "```"
	}
	i++
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == delimiter {
			return i + 1
		}
		i++
	}
	return i // EOF without closing delimiter
}

// docStringContent returns the lines between the delimiters at open and end-1,
// with the opening delimiter's indentation removed.
func docStringContent(lines []string, open, end int) string {
	indent := lines[open][:len(lines[open])-len(strings.TrimLeft(lines[open], " \t"))]
	last := end - 1
	if last >= len(lines) || !isDocStringDelimiter(strings.TrimSpace(lines[last])) || last == open {
		last = end
	}
	var body []string
	for _, l := range lines[open+1 : min(last, len(lines))] {
		body = append(body, strings.TrimPrefix(l, indent))
	}
	return strings.Join(body, "\n")
}

// consumeBlock advances past content lines, skipping over doc strings,
// until the next keyword, tag line, or EOF.
func consumeBlock(lines []string, i int) int {
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		if isDocStringDelimiter(t) {
			i = skipDocString(lines, i)
			continue
		}
		if isKeyword(t) || isTagLine(t) {
			break
		}
		i++
	}
	return i
}

// tagPrecedesKeyword checks if a tag line at index i is followed by a keyword line.
func tagPrecedesKeyword(lines []string, i int) bool {
	for j := i + 1; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" || strings.HasPrefix(t, "#") || isTagLine(t) {
			continue
		}
		return isKeyword(t)
	}
	return false
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func filenameWithoutExt(filename string) string {
	name := path.Base(filename)
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
