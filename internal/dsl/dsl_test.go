package dsl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/ftspec/internal/runner"
)

type node struct {
	Description string
	Pending     bool
	Focused     bool
	Isolated    bool
	Children    []node
}

func snapshot(s *runner.Suite) []node {
	var out []node
	for _, c := range s.Children() {
		switch c := c.(type) {
		case *runner.Suite:
			out = append(out, node{
				Description: c.Description(),
				Pending:     c.Pending() == runner.PendingOn,
				Focused:     c.Focused(),
				Isolated:    c.Isolated,
				Children:    snapshot(c),
			})
		case *runner.Test:
			out = append(out, node{
				Description: c.Description(),
				Pending:     c.IsPending(),
				Focused:     c.Focused(),
			})
		}
	}
	return out
}

func build(specs ...Spec) *runner.Tree {
	tr := runner.NewTree()
	for _, s := range specs {
		s.Register(tr)
	}
	return tr
}

func run(tr *runner.Tree) *runner.Result {
	return runner.New(tr.Root(), nil, runner.Options{}).Run(context.Background())
}

func statuses(res *runner.Result) map[string]runner.Status {
	out := map[string]runner.Status{}
	for _, r := range res.Tests {
		out[r.Test.Description()] = r.Status
	}
	return out
}

func pass(*runner.T) {}

func TestFeature_TitleSkipsEmptySecondDescription(t *testing.T) {
	tr := build(Feature("Login", Text(""), Text("As a user"), Text("I want to log in")))

	got := snapshot(tr.Root())

	require.Len(t, got, 1)
	assert.Equal(t, "Feature: Login\n    As a user\n    I want to log in", got[0].Description)
}

func TestFeature_FirstDescriptionIsInline(t *testing.T) {
	assert.Equal(t, "Feature: Login page", featureTitle("Login", []string{" page"}))
	assert.Equal(t, "Feature: Login\n    later", featureTitle("Login", []string{"", "", "later"}))
	assert.Equal(t, "Feature: Login\n    x\n    \n    y", featureTitle("Login", []string{"", "x", "", "y"}))
}

func TestFeature_ExampleTree(t *testing.T) {
	tr := build(Feature("Some Feature",
		Text(""),
		Text("In order to..."),
		Text("As a ..."),
		Text("I want to..."),
		Text(""),
		Text("Additional text..."),
		Background(
			Text("Given something"),
			Text("And something else"),
			Step(pass),
			Step(pass),
		),
		Scenario("Some scenario",
			Text(""),
			Text("Given something"),
			Text("When something happens"),
			Step(pass),
			Text("Then something else happens"),
			Step(pass),
		),
	))

	want := []node{{
		Description: "Feature: Some Feature\n" +
			"    In order to...\n" +
			"    As a ...\n" +
			"    I want to...\n" +
			"    \n" +
			"    Additional text...\n" +
			"    \n" +
			"    Background:\n" +
			"      Given something\n" +
			"      And something else",
		Children: []node{{
			Description: "\n    Scenario: Some scenario",
			Children: []node{
				{Description: "Given something", Pending: true},
				{Description: "When something happens"},
				{Description: "Then something else happens"},
			},
		}},
	}}

	if diff := cmp.Diff(want, snapshot(tr.Root())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestFeature_FlagsAreFixedAtCall(t *testing.T) {
	tr := build(
		XFeature("Pending", FocusNextStory(), Scenario("inside", Text("a"), Step(pass))),
		FFeature("Focused"),
	)

	got := snapshot(tr.Root())

	require.Len(t, got, 2)
	assert.True(t, got[0].Pending)
	assert.False(t, got[0].Focused)
	assert.True(t, got[0].Children[0].Focused)
	assert.True(t, got[0].Children[0].Children[0].Pending)
	assert.True(t, got[1].Focused)
}

func TestFeature_BackgroundHooksWrapScenarioTests(t *testing.T) {
	var calls []string
	log := func(s string) Step {
		return Step(func(*runner.T) { calls = append(calls, s) })
	}

	tr := build(Feature("F",
		Background(Text("Given a thing"), log("setup"), log("teardown")),
		Scenario("S", Text("one"), log("one"), Text("two"), log("two")),
	))
	run(tr)

	assert.Equal(t, []string{"setup", "one", "teardown", "setup", "two", "teardown"}, calls)
}

func TestScenario_TextFollowedByTextIsPending(t *testing.T) {
	ran := false
	tr := build(Scenario("S",
		Text("first"),
		Text("second"),
		Step(func(*runner.T) { ran = true }),
	))

	res := run(tr)

	assert.Equal(t, map[string]runner.Status{
		"first":  runner.StatusPending,
		"second": runner.StatusPassed,
	}, statuses(res))
	assert.True(t, ran)

	first := tr.Root().AllTests()[0]
	require.NotNil(t, first.Definition())
}

func TestScenario_DanglingDescriptionIsPending(t *testing.T) {
	tr := build(Scenario("S", Text("a"), Step(pass), Text("b")))

	res := run(tr)

	assert.Equal(t, map[string]runner.Status{
		"a": runner.StatusPassed,
		"b": runner.StatusPending,
	}, statuses(res))
}

func TestScenario_IgnoresEmptyTextAndOrphanSteps(t *testing.T) {
	tr := build(Scenario("S",
		Step(func(t *runner.T) { t.Fatal("orphan step ran") }),
		Text(""),
		Text("a"),
		Text(""),
		Step(pass),
		Step(func(t *runner.T) { t.Fatal("second step ran") }),
		Step(nil),
		Spec{},
		Marker{Kind: "bogus"},
	))

	want := []node{{
		Description: "\n    Scenario: S",
		Children:    []node{{Description: "a"}},
	}}
	if diff := cmp.Diff(want, snapshot(tr.Root())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, run(tr).Passed())
}

func TestScenario_MarkersApplyToNextTestOnly(t *testing.T) {
	tr := build(Scenario("S",
		Text("a"), SkipNextStory(), Step(pass),
		Text("b"), Step(pass),
		FocusNextStory(), Text("c"), Step(pass),
		Text("d"), Step(pass),
	))

	tests := snapshot(tr.Root())[0].Children

	assert.Equal(t, []node{
		{Description: "a", Pending: true},
		{Description: "b"},
		{Description: "c", Focused: true},
		{Description: "d"},
	}, tests)
}

func TestScenario_BackgroundRunsAroundEveryTest(t *testing.T) {
	var calls []string
	tr := build(Scenario("S",
		Background(
			Text("Given a user"),
			Text("And a session"),
			Step(func(*runner.T) { calls = append(calls, "setup") }),
			Step(func(*runner.T) { calls = append(calls, "teardown") }),
			Step(func(*runner.T) { calls = append(calls, "ignored") }),
		),
		Text("When it works"),
		Step(func(*runner.T) { calls = append(calls, "works") }),
		Text("Then it fails"),
		Step(func(t *runner.T) {
			calls = append(calls, "fails")
			t.Fatal("body broke")
		}),
	))

	res := run(tr)

	assert.Equal(t, []string{"setup", "works", "teardown", "setup", "fails", "teardown"}, calls)
	require.Len(t, res.Failures(), 1)
	assert.Equal(t, "Then it fails", res.Failures()[0].Test.Description())
	assert.Equal(t, "body broke", res.Failures()[0].Failure.Message)
}

func TestScenario_BackgroundLinesAreDisplayTests(t *testing.T) {
	tr := build(Scenario("S",
		Background(Text("Given a user"), Text(""), Text("And a session"), Step(pass)),
		Text("When it runs"), Step(pass),
	))

	want := []node{{
		Description: "\n    Scenario: S",
		Children: []node{
			{Description: "Background: Given a user"},
			{Description: "Background: And a session"},
			{Description: "When it runs"},
		},
	}}
	if diff := cmp.Diff(want, snapshot(tr.Root())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_OriginalFailureWinsOverTeardownFailure(t *testing.T) {
	teardowns := 0
	tr := build(Scenario("S",
		Background(
			Step(pass),
			Step(func(t *runner.T) {
				teardowns++
				t.Fatal("teardown broke")
			}),
		),
		Text("fails"),
		Step(func(t *runner.T) { t.Fatal("body broke") }),
		Text("passes"),
		Step(pass),
	))

	res := run(tr)

	assert.Equal(t, 2, teardowns)
	require.Len(t, res.Failures(), 2)
	assert.Equal(t, "body broke", res.Failures()[0].Failure.Message)
	assert.Equal(t, "teardown broke", res.Failures()[1].Failure.Message)
}

func TestScenario_OnlyFirstBackgroundIsUsed(t *testing.T) {
	var calls []string
	tr := build(Scenario("S",
		Background(Step(func(*runner.T) { calls = append(calls, "first") })),
		Background(Step(func(*runner.T) { calls = append(calls, "second") })),
		Text("a"), Step(pass),
	))

	run(tr)

	assert.Equal(t, []string{"first"}, calls)
}

func TestScenario_IsolatedVariantsSetFlag(t *testing.T) {
	tr := build(
		IsolatedScenario("a"),
		FIsolatedScenario("b"),
		XIsolatedScenario("c"),
		IsolatedStories("d"),
		Scenario("e"),
	)

	got := snapshot(tr.Root())

	require.Len(t, got, 5)
	assert.Equal(t, []bool{true, true, true, true, false},
		[]bool{got[0].Isolated, got[1].Isolated, got[2].Isolated, got[3].Isolated, got[4].Isolated})
	assert.True(t, got[1].Focused)
	assert.True(t, got[2].Pending)
	assert.Equal(t, "\n    Stories: d", got[3].Description)
}

func TestStories_SkipNextStoryOnlyAffectsNextStory(t *testing.T) {
	tr := build(Stories("S",
		SkipNextStory(),
		Story(Text("As a user"), Text("I skip"), Step(pass)),
		Story(Text("As a user"), Text("I run"), Step(pass)),
	))

	res := run(tr)

	assert.Equal(t, map[string]runner.Status{
		"As a user I skip": runner.StatusPending,
		"As a user I run":  runner.StatusPassed,
	}, statuses(res))
}

func TestStories_FocusNextStoryRunsOnlyThatStory(t *testing.T) {
	tr := build(
		Stories("S",
			Story(Text("one"), Step(pass)),
			FocusNextStory(),
			Story(Text("two"), Step(pass)),
			Story(Text("three"), Step(pass)),
		),
		Scenario("elsewhere", Text("four"), Step(pass)),
	)

	res := run(tr)

	assert.Equal(t, map[string]runner.Status{"two": runner.StatusPassed}, statuses(res))
}

func TestStory_TitleAndBody(t *testing.T) {
	ran := 0
	tr := build(
		Story(Text("As a user"), Text(""), Text("I want things"),
			Step(func(*runner.T) { ran++ }),
			Step(func(*runner.T) { ran += 10 }),
		),
		Story(Text("no body")),
		XStory(Text("skipped"), Step(pass)),
		IsolatedStory(Text("isolated"), Step(pass)),
	)

	want := []node{
		{Children: []node{{Description: "As a user I want things"}}},
		{Children: []node{{Description: "no body", Pending: true}}},
		{Children: []node{{Description: "skipped", Pending: true}}},
		{Isolated: true, Children: []node{{Description: "isolated"}}},
	}
	if diff := cmp.Diff(want, snapshot(tr.Root())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	run(tr)
	assert.Equal(t, 1, ran)
}

func TestStory_BackgroundWrapsBody(t *testing.T) {
	var calls []string
	tr := build(Story(
		Text("wrapped"),
		Background(
			Step(func(*runner.T) { calls = append(calls, "setup") }),
			Step(func(*runner.T) { calls = append(calls, "teardown") }),
		),
		Step(func(*runner.T) { calls = append(calls, "body") }),
	))

	run(tr)

	assert.Equal(t, []string{"setup", "body", "teardown"}, calls)
}

func TestBackground_Descriptions(t *testing.T) {
	bg := Background(Text("Given a"), Text("And b"), Step(pass), Text("ignored"))

	assert.Equal(t, []string{"", "Background:", "  Given a", "  And b"}, bg.Descriptions)
	require.NotNil(t, bg.Fixture())
	assert.NotNil(t, bg.Fixture().Setup)
	assert.Nil(t, bg.Fixture().Teardown)
}
