package expect

import (
	"errors"
	"fmt"
	"strings"
)

var errActualWithoutBug = errors.New("expect: Actual must follow Bug")

// KnownBug is an expectation that tolerates catalogued deviations.
//
//	Expected(3).Bug("late fill", "timing").Actual(4)
//
// passes outright for 3, passes conditionally for 4 with the "late fill"
// bug reproduced, and fails for anything else. A Bug without Actual
// describes the field being absent. Builders return new values; a
// KnownBug is never mutated after construction.
type KnownBug struct {
	expected      any
	expectedEmpty bool
	alternatives  []bugAlternative
	err           error
}

type bugAlternative struct {
	descriptor BugDescriptor
	actual     any
	empty      bool
}

// Expected starts a known-bug expectation for value.
func Expected(value any) *KnownBug {
	return &KnownBug{expected: value}
}

// ExpectedEmpty starts a known-bug expectation for an absent value.
func ExpectedEmpty() *KnownBug {
	return &KnownBug{expectedEmpty: true}
}

func (k *KnownBug) clone() *KnownBug {
	out := *k
	out.alternatives = append([]bugAlternative(nil), k.alternatives...)
	return &out
}

// Bug declares a known bug. Until Actual is called the bug describes an
// absent value.
func (k *KnownBug) Bug(subject string, categories ...string) *KnownBug {
	out := k.clone()
	out.alternatives = append(out.alternatives, bugAlternative{
		descriptor: BugDescriptor{Subject: subject, Categories: append([]string(nil), categories...)},
		empty:      true,
	})
	return out
}

// Actual sets the value the most recent bug produces.
func (k *KnownBug) Actual(value any) *KnownBug {
	out := k.clone()
	if len(out.alternatives) == 0 {
		out.err = errActualWithoutBug
		return out
	}
	last := &out.alternatives[len(out.alternatives)-1]
	last.actual = value
	last.empty = false
	return out
}

// ActualEmpty declares that the most recent bug produces an absent value.
func (k *KnownBug) ActualEmpty() *KnownBug {
	out := k.clone()
	if len(out.alternatives) == 0 {
		out.err = errActualWithoutBug
		return out
	}
	last := &out.alternatives[len(out.alternatives)-1]
	last.actual = nil
	last.empty = true
	return out
}

// Err reports a malformed builder chain.
func (k *KnownBug) Err() error {
	if k == nil {
		return errors.New("expect: nil known bug")
	}
	return k.err
}

// Descriptors returns every declared bug in declaration order.
func (k *KnownBug) Descriptors() []BugDescriptor {
	if k == nil {
		return nil
	}
	out := make([]BugDescriptor, len(k.alternatives))
	for i, alt := range k.alternatives {
		out[i] = alt.descriptor
	}
	return out
}

// Validate checks actual against the expected value and every declared bug.
func (k *KnownBug) Validate(actual any) *ExpressionResult {
	if err := k.Err(); err != nil {
		return NewExpressionResult(false, WithCause(err), WithDescription(err.Error()))
	}
	potential := k.Descriptors()
	if k.matchesExpected(actual) {
		return NewExpressionResult(true, WithPotentialBugs(potential...))
	}
	var reproduced []BugDescriptor
	for _, alt := range k.alternatives {
		if alt.matches(actual) {
			reproduced = append(reproduced, alt.descriptor)
		}
	}
	if len(reproduced) > 0 {
		return NewExpressionResult(true,
			WithActualBugs(reproduced...),
			WithPotentialBugs(potential...),
			WithCause(&KnownBugCause{Reproduced: reproduced, Potential: potential}),
			WithDescription(fmt.Sprintf("known bug reproduced: %s", joinDescriptors(reproduced))),
		)
	}
	return NewExpressionResult(false,
		WithPotentialBugs(potential...),
		WithCause(&KnownBugCause{Potential: potential}),
		WithDescription(fmt.Sprintf("expected %s, got %s", k.expectedLiteral(), formatLiteral(actual))),
	)
}

func (k *KnownBug) matchesExpected(actual any) bool {
	if k.expectedEmpty {
		return actual == nil
	}
	return ValuesEqual(actual, k.expected)
}

func (alt bugAlternative) matches(actual any) bool {
	if alt.empty {
		return actual == nil
	}
	return ValuesEqual(actual, alt.actual)
}

func (k *KnownBug) expectedLiteral() string {
	if k.expectedEmpty {
		return "<empty>"
	}
	return formatLiteral(k.expected)
}

// Condition renders the builder chain.
func (k *KnownBug) Condition() string {
	if k == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if k.expectedEmpty {
		sb.WriteString("ExpectedEmpty()")
	} else {
		fmt.Fprintf(&sb, "Expected(%s)", formatLiteral(k.expected))
	}
	for _, alt := range k.alternatives {
		args := []string{formatLiteral(alt.descriptor.Subject)}
		for _, category := range alt.descriptor.Categories {
			args = append(args, formatLiteral(category))
		}
		fmt.Fprintf(&sb, ".Bug(%s)", strings.Join(args, ", "))
		if alt.empty {
			sb.WriteString(".ActualEmpty()")
			continue
		}
		fmt.Fprintf(&sb, ".Actual(%s)", formatLiteral(alt.actual))
	}
	return sb.String()
}

func (k *KnownBug) String() string {
	return k.Condition()
}
