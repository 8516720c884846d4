package expect

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// BugDescriptor identifies a catalogued known bug.
type BugDescriptor struct {
	Subject    string
	Categories []string
}

// Key is the set identity of the descriptor.
func (d BugDescriptor) Key() string {
	if len(d.Categories) == 0 {
		return d.Subject
	}
	return d.Subject + "|" + strings.Join(d.Categories, "/")
}

func (d BugDescriptor) String() string {
	if len(d.Categories) == 0 {
		return fmt.Sprintf("%q", d.Subject)
	}
	return fmt.Sprintf("%q [%s]", d.Subject, strings.Join(d.Categories, ", "))
}

type bugSet map[string]BugDescriptor

func newBugSet(descriptors []BugDescriptor) bugSet {
	set := make(bugSet, len(descriptors))
	for _, d := range descriptors {
		set[d.Key()] = d
	}
	return set
}

func (s bugSet) sorted() []BugDescriptor {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]BugDescriptor, 0, len(keys))
	for _, key := range keys {
		out = append(out, s[key])
	}
	return out
}

func (s bugSet) equal(other bugSet) bool {
	if len(s) != len(other) {
		return false
	}
	for key := range s {
		if _, ok := other[key]; !ok {
			return false
		}
	}
	return true
}

// ExpressionResult is the verdict of validating one candidate value.
//
// Results are immutable. The two results carrying no detail are shared
// instances; compare results with Equal, never by pointer.
type ExpressionResult struct {
	passed        bool
	embedded      []any
	hasEmbedded   bool
	description   string
	cause         error
	actualBugs    bugSet
	potentialBugs bugSet
}

var (
	resultTrue  = &ExpressionResult{passed: true, actualBugs: bugSet{}, potentialBugs: bugSet{}}
	resultFalse = &ExpressionResult{passed: false, actualBugs: bugSet{}, potentialBugs: bugSet{}}
)

// ResultOption adds detail to an ExpressionResult.
type ResultOption func(*ExpressionResult)

// WithDescription attaches a human readable explanation.
func WithDescription(description string) ResultOption {
	return func(r *ExpressionResult) {
		r.description = description
	}
}

// WithCause attaches the error that explains the verdict.
func WithCause(err error) ResultOption {
	return func(r *ExpressionResult) {
		r.cause = err
	}
}

// WithEmbeddedList attaches the values a list-producing check embedded.
func WithEmbeddedList(values []any) ResultOption {
	return func(r *ExpressionResult) {
		r.embedded = slices.Clone(values)
		r.hasEmbedded = true
	}
}

// WithActualBugs records reproduced known bugs.
func WithActualBugs(descriptors ...BugDescriptor) ResultOption {
	return func(r *ExpressionResult) {
		for _, d := range descriptors {
			r.actualBugs[d.Key()] = d
		}
	}
}

// WithPotentialBugs records known bugs that could have applied.
func WithPotentialBugs(descriptors ...BugDescriptor) ResultOption {
	return func(r *ExpressionResult) {
		for _, d := range descriptors {
			r.potentialBugs[d.Key()] = d
		}
	}
}

// NewExpressionResult returns a result without detail. Both verdicts are
// backed by shared instances.
func NewExpressionResult(passed bool, opts ...ResultOption) *ExpressionResult {
	if len(opts) == 0 {
		if passed {
			return resultTrue
		}
		return resultFalse
	}
	result := &ExpressionResult{
		passed:        passed,
		actualBugs:    bugSet{},
		potentialBugs: bugSet{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(result)
		}
	}
	return result
}

func (r *ExpressionResult) Passed() bool {
	return r != nil && r.passed
}

// EmbeddedList returns the embedded values and whether any were attached.
func (r *ExpressionResult) EmbeddedList() ([]any, bool) {
	if r == nil || !r.hasEmbedded {
		return nil, false
	}
	return slices.Clone(r.embedded), true
}

func (r *ExpressionResult) Description() string {
	if r == nil {
		return ""
	}
	return r.description
}

func (r *ExpressionResult) Cause() error {
	if r == nil {
		return nil
	}
	return r.cause
}

// ActualBugs returns reproduced bugs ordered by key. Never nil.
func (r *ExpressionResult) ActualBugs() []BugDescriptor {
	if r == nil {
		return []BugDescriptor{}
	}
	return r.actualBugs.sorted()
}

// PotentialBugs returns bugs that could have applied ordered by key. Never nil.
func (r *ExpressionResult) PotentialBugs() []BugDescriptor {
	if r == nil {
		return []BugDescriptor{}
	}
	return r.potentialBugs.sorted()
}

// ConditionallyPassed reports a pass that relied on a reproduced known bug.
func (r *ExpressionResult) ConditionallyPassed() bool {
	return r.Passed() && len(r.actualBugs) > 0
}

// ConditionallyFailed reports a failure for a field that declares known bugs.
func (r *ExpressionResult) ConditionallyFailed() bool {
	return r != nil && !r.passed && len(r.potentialBugs) > 0
}

// Equal compares results structurally.
func (r *ExpressionResult) Equal(other *ExpressionResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.passed != other.passed || r.description != other.description || r.hasEmbedded != other.hasEmbedded {
		return false
	}
	if !slices.EqualFunc(r.embedded, other.embedded, ValuesEqual) {
		return false
	}
	if (r.cause == nil) != (other.cause == nil) {
		return false
	}
	if r.cause != nil && r.cause.Error() != other.cause.Error() && !errors.Is(r.cause, other.cause) {
		return false
	}
	return r.actualBugs.equal(other.actualBugs) && r.potentialBugs.equal(other.potentialBugs)
}

func (r *ExpressionResult) String() string {
	if r == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if r.passed {
		sb.WriteString("passed")
	} else {
		sb.WriteString("failed")
	}
	if r.description != "" {
		sb.WriteString(": ")
		sb.WriteString(r.description)
	}
	if len(r.actualBugs) > 0 {
		sb.WriteString(" (known bugs: ")
		sb.WriteString(joinDescriptors(r.actualBugs.sorted()))
		sb.WriteByte(')')
	}
	return sb.String()
}

func joinDescriptors(descriptors []BugDescriptor) string {
	parts := make([]string, len(descriptors))
	for i, d := range descriptors {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}

// KnownBugCause explains a verdict that involved known bugs. Reproduced
// lists bugs that matched the actual value; Potential lists every bug the
// expectation declared.
type KnownBugCause struct {
	Reproduced []BugDescriptor
	Potential  []BugDescriptor
}

func (c *KnownBugCause) Error() string {
	if c == nil {
		return "<nil>"
	}
	if len(c.Reproduced) == 0 {
		return "expect: no known bug reproduced; potential: " + joinDescriptors(c.Potential)
	}
	return "expect: known bugs reproduced: " + joinDescriptors(c.Reproduced)
}

// Merge folds other into c, deduplicating by descriptor key.
func (c *KnownBugCause) Merge(other *KnownBugCause) {
	if c == nil || other == nil {
		return
	}
	c.Reproduced = mergeDescriptors(c.Reproduced, other.Reproduced)
	c.Potential = mergeDescriptors(c.Potential, other.Potential)
}

func mergeDescriptors(into, from []BugDescriptor) []BugDescriptor {
	set := newBugSet(into)
	for _, d := range from {
		set[d.Key()] = d
	}
	return set.sorted()
}
