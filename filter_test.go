package expect

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/goliatone/go-expect/count"
)

func TestBuildFilterClassifiesValues(t *testing.T) {
	runtimes := []struct {
		name   string
		engine *Engine
	}{
		{name: "expr", engine: NewEngine()},
		{name: "cel", engine: NewEngine(WithEvaluator(NewCELEvaluator()))},
	}
	for _, rt := range runtimes {
		rt := rt
		t.Run(rt.name, func(t *testing.T) {
			present, err := rt.engine.BuildFilter("PRESENT", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if present.Kind() != FilterNotNull {
				t.Fatalf("expected not-null filter, got %s", present.Kind())
			}

			missing, err := rt.engine.BuildFilter("MISSING", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if missing.Kind() != FilterNull {
				t.Fatalf("expected null filter, got %s", missing.Kind())
			}

			literal, err := rt.engine.BuildFilter("limit + 1", Bindings{"limit": 3}, AtPosition(4, 2))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if literal.Kind() != FilterLiteral || !literal.HasValue() {
				t.Fatalf("expected literal filter with value, got %s", literal.Kind())
			}
			if !literal.Validate(4).Passed() || literal.Validate(5).Passed() {
				t.Fatalf("expected literal filter to accept only 4")
			}
			if literal.Position() != (Position{Line: 4, Column: 2}) {
				t.Fatalf("expected position 4:2, got %s", literal.Position())
			}
		})
	}
}

func TestBuildFilterKnownBug(t *testing.T) {
	engine := NewEngine()
	filter, err := engine.BuildFilter(`Expected(3).Bug("late fill", "timing").Actual(4)`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Kind() != FilterKnownBug {
		t.Fatalf("expected known bug filter, got %s", filter.Kind())
	}

	exact := filter.Validate(int64(3))
	if !exact.Passed() || exact.ConditionallyPassed() {
		t.Fatalf("expected unconditional pass, got %s", exact)
	}
	if len(exact.PotentialBugs()) != 1 {
		t.Fatalf("expected the declared bug as potential, got %v", exact.PotentialBugs())
	}

	reproduced := filter.Validate(4)
	if !reproduced.ConditionallyPassed() {
		t.Fatalf("expected conditional pass, got %s", reproduced)
	}
	var cause *KnownBugCause
	if !errors.As(reproduced.Cause(), &cause) || len(cause.Reproduced) != 1 {
		t.Fatalf("expected known bug cause, got %v", reproduced.Cause())
	}
	if cause.Reproduced[0].Subject != "late fill" {
		t.Fatalf("unexpected reproduced bug %v", cause.Reproduced[0])
	}

	failed := filter.Validate(5)
	if failed.Passed() || !failed.ConditionallyFailed() {
		t.Fatalf("expected conditional failure, got %s", failed)
	}

	if _, err := filter.Value(); err == nil {
		t.Fatalf("expected known bug filter to have no value")
	}
}

func TestKnownBugWithoutActualDescribesAbsentField(t *testing.T) {
	bug := ExpectedEmpty().Bug("dropped tag")
	if !bug.Validate(nil).Passed() || bug.Validate(nil).ConditionallyPassed() {
		t.Fatalf("expected absent value to match the expectation")
	}

	bug = Expected("A").Bug("dropped tag")
	result := bug.Validate(nil)
	if !result.ConditionallyPassed() {
		t.Fatalf("expected absent value to reproduce the bug, got %s", result)
	}
	if got := bug.Condition(); got != `Expected("A").Bug("dropped tag").ActualEmpty()` {
		t.Fatalf("unexpected condition %q", got)
	}
}

func TestKnownBugActualRequiresBug(t *testing.T) {
	bug := Expected(1).Actual(2)
	if !errors.Is(bug.Err(), errActualWithoutBug) {
		t.Fatalf("expected builder error, got %v", bug.Err())
	}
	if _, err := NewKnownBugFilter(bug); err == nil {
		t.Fatalf("expected malformed known bug to be rejected")
	}
}

func TestKnownBugBuildersDoNotMutate(t *testing.T) {
	base := Expected(1).Bug("a")
	_ = base.Actual(2)
	if !base.Validate(nil).ConditionallyPassed() {
		t.Fatalf("expected base to keep describing an absent value")
	}
}

func TestBuildExpressionFilter(t *testing.T) {
	runtimes := []struct {
		name   string
		engine *Engine
	}{
		{name: "expr", engine: NewEngine()},
		{name: "cel", engine: NewEngine(WithEvaluator(NewCELEvaluator()))},
	}
	for _, rt := range runtimes {
		rt := rt
		t.Run(rt.name, func(t *testing.T) {
			filter, err := rt.engine.BuildExpressionFilter("x > limit", Bindings{"limit": 5})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.Kind() != FilterExpression || filter.HasValue() {
				t.Fatalf("expected expression filter without value")
			}
			if !filter.Validate(int64(6)).Passed() {
				t.Fatalf("expected 6 > 5")
			}
			if filter.Validate(int64(5)).Passed() {
				t.Fatalf("expected 5 > 5 to fail")
			}
			if got := filter.Condition(); got != "x > 5" {
				t.Fatalf("expected diagnostic condition %q, got %q", "x > 5", got)
			}
		})
	}
}

func TestExpressionFilterEvaluationErrorFails(t *testing.T) {
	engine := NewEngine()
	filter, err := engine.BuildExpressionFilter("check(x)", Bindings{
		"check": func(any) (any, error) { return nil, errors.New("boom") },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := filter.Validate(1)
	if result.Passed() {
		t.Fatalf("expected evaluation failure to fail validation")
	}
	var evalErr *ExpressionEvalError
	if !errors.As(result.Cause(), &evalErr) {
		t.Fatalf("expected eval error cause, got %v", result.Cause())
	}
}

func TestExpressionFilterKnownBugResult(t *testing.T) {
	engine := NewEngine()
	filter, err := engine.BuildExpressionFilter(`Expected(limit).Bug("off by one").Actual(limit + 1)`, Bindings{"limit": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filter.Validate(3).ConditionallyPassed() {
		t.Fatalf("expected known bug expression to conditionally pass")
	}
}

func TestRenderConditionSubstitutesBindings(t *testing.T) {
	bindings := Bindings{
		"name":  "abc",
		"side":  Char('B'),
		"limit": 3,
		"fn":    Expected,
	}

	cases := []struct {
		text string
		want string
	}{
		{"x == name", `x == "abc"`},
		{"x == side", `x == 'B'`},
		{"order.limit > limit", "order.limit > 3"},
		{"x == 'limit'", "x == 'limit'"},
		{"unknown + limit", "unknown + 3"},
	}
	for _, tc := range cases {
		if got := RenderCondition(tc.text, bindings); got != tc.want {
			t.Fatalf("RenderCondition(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}

	if got := RenderCondition("fn", bindings); !strings.HasSuffix(got, ".Expected") {
		t.Fatalf("expected function to render by name, got %q", got)
	}
}

func TestRenderConditionDoesNotCallFunctions(t *testing.T) {
	calls := 0
	bindings := Bindings{
		"lazy":   func() any { calls++; return 42 },
		"failed": func() (any, error) { calls++; return nil, errors.New("unavailable") },
	}

	got := RenderCondition("x == lazy || x == failed", bindings)
	if calls != 0 {
		t.Fatalf("expected functions not to be called, got %d calls", calls)
	}
	if strings.Contains(got, "42") || strings.Count(got, ".TestRenderConditionDoesNotCallFunctions.func") != 2 {
		t.Fatalf("expected functions to render by name, got %q", got)
	}
}

func TestBuildRegexFilter(t *testing.T) {
	engine := NewEngine()
	filter, err := engine.BuildRegexFilter(`"^AB" + suffix`, Bindings{"suffix": "[0-9]+"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filter.Validate("AB12").Passed() {
		t.Fatalf("expected AB12 to match")
	}
	if filter.Validate("XAB12").Passed() || filter.Validate(nil).Passed() {
		t.Fatalf("expected anchored pattern to reject XAB12 and nil")
	}
	value, err := filter.Value()
	if err != nil || value != "^AB[0-9]+" {
		t.Fatalf("expected pattern value, got %v (%v)", value, err)
	}

	unanchored, err := NewRegexFilter("B1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !unanchored.Validate("AB12").Passed() {
		t.Fatalf("expected unanchored match")
	}
	numeric, err := NewRegexFilter(`^9\d$`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numeric.Validate(int64(91)).Passed() || numeric.Validate(int64(191)).Passed() {
		t.Fatalf("expected matching on the string form of numbers")
	}

	if _, err := engine.BuildRegexFilter("42", nil); err == nil {
		t.Fatalf("expected non-string pattern to be rejected")
	}
}

func TestBuildCountFilter(t *testing.T) {
	engine := NewEngine()

	literal, err := engine.BuildCountFilter("[2..5]", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if literal.Kind() != FilterCount || literal.Condition() != "[2..5]" {
		t.Fatalf("expected count filter [2..5], got %s %q", literal.Kind(), literal.Condition())
	}
	if !literal.Validate(2).Passed() || literal.Validate(6).Passed() {
		t.Fatalf("unexpected range evaluation")
	}

	dynamic, err := engine.BuildCountFilter(">= limit * 2", Bindings{"limit": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	countFilter, ok := dynamic.(*CountFilter)
	if !ok {
		t.Fatalf("expected *CountFilter, got %T", dynamic)
	}
	if _, ok := countFilter.Spec().(count.Dynamic); !ok {
		t.Fatalf("expected dynamic spec, got %T", countFilter.Spec())
	}
	if !dynamic.Validate(4).Passed() || dynamic.Validate(3).Passed() {
		t.Fatalf("unexpected dynamic evaluation")
	}
	if got := dynamic.Condition(); got != ">=2 * 2" {
		t.Fatalf("unexpected dynamic condition %q", got)
	}

	evaluated, err := engine.BuildCountFilter("limit", Bindings{"limit": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluated.Kind() != FilterCount || evaluated.Condition() != "3" {
		t.Fatalf("expected evaluated count 3, got %q", evaluated.Condition())
	}

	textual, err := engine.BuildCountFilter(`">" + string(limit)`, Bindings{"limit": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !textual.Validate(2).Passed() || textual.Validate(1).Passed() {
		t.Fatalf("unexpected evaluated comparison")
	}

	bug, err := engine.BuildCountFilter(`Expected(3).Bug("duplicate").Actual(4)`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bug.Kind() != FilterKnownBug {
		t.Fatalf("expected known bug filter, got %s", bug.Kind())
	}

	_, err = engine.BuildCountFilter(`"many"`, nil)
	var unsupported *UnsupportedValueTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedValueTypeError, got %v", err)
	}
}

func TestLiteralFilterEquality(t *testing.T) {
	cases := []struct {
		name      string
		literal   any
		candidate any
		want      bool
	}{
		{"int widening", 3, int64(3), true},
		{"int vs float", 3, 3.0, true},
		{"string", "A", "A", true},
		{"string mismatch", "A", "B", false},
		{"nil both", nil, nil, true},
		{"nil candidate", 1, nil, false},
		{"nan", math.NaN(), math.NaN(), true},
		{"positive inf", math.Inf(1), math.Inf(1), true},
		{"inf sign", math.Inf(1), math.Inf(-1), false},
		{"nan vs number", math.NaN(), 1.0, false},
		{"slice", []any{1, "a"}, []any{1, "a"}, true},
		{"large int64 exact", int64(9007199254740993), int64(9007199254740993), true},
		{"large int64 neighbours", int64(9007199254740993), int64(9007199254740992), false},
		{"uint64 vs int64", uint64(math.MaxInt64), int64(math.MaxInt64), true},
		{"max uint64 vs max int64", uint64(math.MaxUint64), int64(math.MaxInt64), false},
		{"negative vs unsigned", -1, uint64(math.MaxUint64), false},
		{"float vs large int", 9007199254740992.0, int64(9007199254740993), false},
		{"fractional float vs int", 3.5, 3, false},
		{"negative int vs float", -4, -4.0, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := NewLiteralFilter(tc.literal).Validate(tc.candidate).Passed(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFiltersWithoutValue(t *testing.T) {
	filters := []Filter{
		NewNullFilter(),
		NewNotNullFilter(),
		NewCountFilter(count.MustParse("3")),
	}
	for _, filter := range filters {
		if filter.HasValue() {
			t.Fatalf("expected %s filter to have no value", filter.Kind())
		}
		_, err := filter.Value()
		var noValue *NoValueError
		if !errors.As(err, &noValue) || noValue.Kind != filter.Kind() {
			t.Fatalf("expected NoValueError for %s, got %v", filter.Kind(), err)
		}
	}
}

func TestNullFilters(t *testing.T) {
	if !NewNullFilter().Validate(nil).Passed() || NewNullFilter().Validate(0).Passed() {
		t.Fatalf("unexpected null filter behaviour")
	}
	if NewNotNullFilter().Validate(nil).Passed() || !NewNotNullFilter().Validate("").Passed() {
		t.Fatalf("unexpected not-null filter behaviour")
	}
}
