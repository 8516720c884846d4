package expect

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-expect/count"
)

// FilterKind tags the Filter variants.
type FilterKind int

const (
	FilterNull FilterKind = iota
	FilterNotNull
	FilterLiteral
	FilterRegex
	FilterExpression
	FilterKnownBug
	FilterCount
)

func (k FilterKind) String() string {
	switch k {
	case FilterNull:
		return "null"
	case FilterNotNull:
		return "not_null"
	case FilterLiteral:
		return "literal"
	case FilterRegex:
		return "regex"
	case FilterExpression:
		return "expression"
	case FilterKnownBug:
		return "known_bug"
	case FilterCount:
		return "count"
	default:
		return "unknown"
	}
}

// Position is the authored location of a condition.
type Position struct {
	Line   int
	Column int
}

func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Filter is an immutable expectation for one field value.
type Filter interface {
	Kind() FilterKind
	// Validate checks candidate. A nil candidate stands for an absent field.
	Validate(candidate any) *ExpressionResult
	// Condition renders the filter for diagnostics only.
	Condition() string
	HasValue() bool
	// Value returns the concrete literal or a *NoValueError.
	Value() (any, error)
	Position() Position
}

// NullFilter expects the field to be absent.
type NullFilter struct {
	position Position
}

// NewNullFilter returns a NullFilter.
func NewNullFilter(opts ...FilterOption) *NullFilter {
	return &NullFilter{position: applyFilterOptions(opts).position}
}

func (f *NullFilter) Kind() FilterKind    { return FilterNull }
func (f *NullFilter) Condition() string   { return "is null" }
func (f *NullFilter) HasValue() bool      { return false }
func (f *NullFilter) Value() (any, error) { return nil, &NoValueError{Kind: FilterNull} }
func (f *NullFilter) Position() Position  { return f.position }

func (f *NullFilter) Validate(candidate any) *ExpressionResult {
	return NewExpressionResult(candidate == nil)
}

// NotNullFilter expects the field to be present with any value.
type NotNullFilter struct {
	position Position
}

// NewNotNullFilter returns a NotNullFilter.
func NewNotNullFilter(opts ...FilterOption) *NotNullFilter {
	return &NotNullFilter{position: applyFilterOptions(opts).position}
}

func (f *NotNullFilter) Kind() FilterKind    { return FilterNotNull }
func (f *NotNullFilter) Condition() string   { return "is not null" }
func (f *NotNullFilter) HasValue() bool      { return false }
func (f *NotNullFilter) Value() (any, error) { return nil, &NoValueError{Kind: FilterNotNull} }
func (f *NotNullFilter) Position() Position  { return f.position }

func (f *NotNullFilter) Validate(candidate any) *ExpressionResult {
	return NewExpressionResult(candidate != nil)
}

// LiteralFilter expects a value equal to its literal.
type LiteralFilter struct {
	value    any
	position Position
}

// NewLiteralFilter returns a LiteralFilter for value.
func NewLiteralFilter(value any, opts ...FilterOption) *LiteralFilter {
	return &LiteralFilter{value: value, position: applyFilterOptions(opts).position}
}

func (f *LiteralFilter) Kind() FilterKind    { return FilterLiteral }
func (f *LiteralFilter) Condition() string   { return formatLiteral(f.value) }
func (f *LiteralFilter) HasValue() bool      { return true }
func (f *LiteralFilter) Value() (any, error) { return f.value, nil }
func (f *LiteralFilter) Position() Position  { return f.position }

func (f *LiteralFilter) Validate(candidate any) *ExpressionResult {
	return NewExpressionResult(ValuesEqual(candidate, f.value))
}

// RegexFilter expects the string form of the value to match a pattern.
// Matching is unanchored.
type RegexFilter struct {
	pattern  *regexp.Regexp
	position Position
}

// NewRegexFilter compiles pattern into a RegexFilter.
func NewRegexFilter(pattern string, opts ...FilterOption) (*RegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("expect: regex filter %q: %w", pattern, err)
	}
	return &RegexFilter{pattern: re, position: applyFilterOptions(opts).position}, nil
}

func (f *RegexFilter) Kind() FilterKind    { return FilterRegex }
func (f *RegexFilter) Condition() string   { return "=~ " + formatLiteral(f.pattern.String()) }
func (f *RegexFilter) HasValue() bool      { return true }
func (f *RegexFilter) Value() (any, error) { return f.pattern.String(), nil }
func (f *RegexFilter) Position() Position  { return f.position }

func (f *RegexFilter) Validate(candidate any) *ExpressionResult {
	if candidate == nil {
		return NewExpressionResult(false)
	}
	text, ok := candidate.(string)
	if !ok {
		text = fmt.Sprint(candidate)
	}
	return NewExpressionResult(f.pattern.MatchString(text))
}

// ExpressionFilter re-evaluates its condition for each candidate, bound to
// x. The condition may yield a bool, an *ExpressionResult, a presence
// sentinel or a known-bug expectation.
type ExpressionFilter struct {
	engine     *Engine
	rule       CompiledRule
	bindings   Bindings
	diagnostic string
	position   Position
}

func (f *ExpressionFilter) Kind() FilterKind    { return FilterExpression }
func (f *ExpressionFilter) Condition() string   { return f.diagnostic }
func (f *ExpressionFilter) HasValue() bool      { return false }
func (f *ExpressionFilter) Value() (any, error) { return nil, &NoValueError{Kind: FilterExpression} }
func (f *ExpressionFilter) Position() Position  { return f.position }

// Source returns the condition text as authored.
func (f *ExpressionFilter) Source() string {
	return f.rule.Source()
}

func (f *ExpressionFilter) Validate(candidate any) *ExpressionResult {
	value, err := f.engine.Evaluate(f.rule, f.bindings.With(CandidateBinding, candidate))
	if err != nil {
		return NewExpressionResult(false, WithCause(err), WithDescription(err.Error()))
	}
	switch typed := value.(type) {
	case bool:
		return NewExpressionResult(typed)
	case *ExpressionResult:
		if typed == nil {
			return NewExpressionResult(false)
		}
		return typed
	case *KnownBug:
		return typed.Validate(candidate)
	case Presence:
		if typed == Missing {
			return NewExpressionResult(candidate == nil)
		}
		return NewExpressionResult(candidate != nil)
	default:
		return NewExpressionResult(false, WithDescription(
			fmt.Sprintf("condition %s produced %s (%T), not a boolean", f.diagnostic, formatLiteral(value), value)))
	}
}

// KnownBugFilter validates through a known-bug expectation.
type KnownBugFilter struct {
	bug      *KnownBug
	position Position
}

func newKnownBugFilter(bug *KnownBug, position Position) (*KnownBugFilter, error) {
	if err := bug.Err(); err != nil {
		return nil, err
	}
	return &KnownBugFilter{bug: bug, position: position}, nil
}

// NewKnownBugFilter wraps bug.
func NewKnownBugFilter(bug *KnownBug, opts ...FilterOption) (*KnownBugFilter, error) {
	return newKnownBugFilter(bug, applyFilterOptions(opts).position)
}

func (f *KnownBugFilter) Kind() FilterKind    { return FilterKnownBug }
func (f *KnownBugFilter) Condition() string   { return f.bug.Condition() }
func (f *KnownBugFilter) HasValue() bool      { return false }
func (f *KnownBugFilter) Value() (any, error) { return nil, &NoValueError{Kind: FilterKnownBug} }
func (f *KnownBugFilter) Position() Position  { return f.position }

// KnownBug returns the wrapped expectation.
func (f *KnownBugFilter) KnownBug() *KnownBug {
	return f.bug
}

func (f *KnownBugFilter) Validate(candidate any) *ExpressionResult {
	return f.bug.Validate(candidate)
}

// CountFilter expects an integer satisfying a count specification.
type CountFilter struct {
	spec     count.Spec
	position Position
}

// NewCountFilter wraps spec.
func NewCountFilter(spec count.Spec, opts ...FilterOption) *CountFilter {
	return &CountFilter{spec: spec, position: applyFilterOptions(opts).position}
}

func (f *CountFilter) Kind() FilterKind    { return FilterCount }
func (f *CountFilter) Condition() string   { return f.spec.String() }
func (f *CountFilter) HasValue() bool      { return false }
func (f *CountFilter) Value() (any, error) { return nil, &NoValueError{Kind: FilterCount} }
func (f *CountFilter) Position() Position  { return f.position }

// Spec returns the wrapped count specification.
func (f *CountFilter) Spec() count.Spec {
	return f.spec
}

func (f *CountFilter) Validate(candidate any) *ExpressionResult {
	n, ok := toInt(candidate)
	if !ok {
		return NewExpressionResult(false, WithDescription(
			fmt.Sprintf("count %s cannot check %s", f.spec, formatLiteral(candidate))))
	}
	passed, err := f.spec.Evaluate(n)
	if err != nil {
		return NewExpressionResult(false, WithCause(err), WithDescription(err.Error()))
	}
	return NewExpressionResult(passed)
}
