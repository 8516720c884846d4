package expect

import (
	"errors"
	"testing"
)

func TestNewExpressionResultReusesInstances(t *testing.T) {
	first := NewExpressionResult(true)
	second := NewExpressionResult(true)
	if !first.Equal(second) {
		t.Fatalf("expected results to be structurally equal")
	}
	if first != second {
		t.Fatalf("expected detail-free results to share an instance")
	}
	if NewExpressionResult(false) == first {
		t.Fatalf("expected distinct instances per verdict")
	}
}

func TestExpressionResultEqualityIsStructural(t *testing.T) {
	detailed := NewExpressionResult(true, WithDescription(""))
	if detailed == NewExpressionResult(true) {
		t.Fatalf("expected a fresh instance when options are given")
	}
	if !detailed.Equal(NewExpressionResult(true)) {
		t.Fatalf("expected equal content to compare equal")
	}

	bug := BugDescriptor{Subject: "late fill", Categories: []string{"timing"}}
	a := NewExpressionResult(true, WithActualBugs(bug))
	b := NewExpressionResult(true, WithActualBugs(bug, bug))
	if !a.Equal(b) {
		t.Fatalf("expected bug sets to deduplicate")
	}
	if a.Equal(NewExpressionResult(true)) {
		t.Fatalf("expected bug sets to participate in equality")
	}
}

func TestExpressionResultBugSetsNeverNil(t *testing.T) {
	for _, result := range []*ExpressionResult{NewExpressionResult(true), NewExpressionResult(false, WithDescription("x")), nil} {
		if result.ActualBugs() == nil || result.PotentialBugs() == nil {
			t.Fatalf("expected empty, non-nil bug sets")
		}
	}
}

func TestExpressionResultAccessors(t *testing.T) {
	cause := errors.New("cause")
	result := NewExpressionResult(false,
		WithCause(cause),
		WithDescription("mismatch"),
		WithEmbeddedList([]any{1, 2}),
		WithPotentialBugs(BugDescriptor{Subject: "b"}, BugDescriptor{Subject: "a"}),
	)
	if !errors.Is(result.Cause(), cause) {
		t.Fatalf("expected cause to be preserved")
	}
	if result.Description() != "mismatch" {
		t.Fatalf("unexpected description %q", result.Description())
	}
	list, ok := result.EmbeddedList()
	if !ok || len(list) != 2 {
		t.Fatalf("expected embedded list, got %v", list)
	}
	potential := result.PotentialBugs()
	if len(potential) != 2 || potential[0].Subject != "a" {
		t.Fatalf("expected potential bugs ordered by key, got %v", potential)
	}
	if !result.ConditionallyFailed() || result.ConditionallyPassed() {
		t.Fatalf("expected conditional failure")
	}
	if _, ok := NewExpressionResult(true).EmbeddedList(); ok {
		t.Fatalf("expected no embedded list by default")
	}
}

func TestKnownBugCauseMerge(t *testing.T) {
	cause := &KnownBugCause{Reproduced: []BugDescriptor{{Subject: "a"}}}
	cause.Merge(&KnownBugCause{
		Reproduced: []BugDescriptor{{Subject: "a"}, {Subject: "b"}},
		Potential:  []BugDescriptor{{Subject: "c"}},
	})
	if len(cause.Reproduced) != 2 || len(cause.Potential) != 1 {
		t.Fatalf("unexpected merge result %+v", cause)
	}
}
