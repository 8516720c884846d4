// Package compare defines the comparator contract the orchestrator and the
// leg matcher consume, plus a default field-by-field comparator driven by
// expect filters.
package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-expect"
)

// Status is the verdict for one compared field.
type Status int

const (
	NA Status = iota
	Passed
	ConditionallyPassed
	ConditionallyFailed
	Failed
)

func (s Status) String() string {
	switch s {
	case NA:
		return "NA"
	case Passed:
		return "PASSED"
	case ConditionallyPassed:
		return "CONDITIONALLY_PASSED"
	case ConditionallyFailed:
		return "CONDITIONALLY_FAILED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusOf maps a filter verdict onto a field status.
func StatusOf(result *expect.ExpressionResult) Status {
	switch {
	case result == nil:
		return NA
	case result.ConditionallyPassed():
		return ConditionallyPassed
	case result.Passed():
		return Passed
	case result.ConditionallyFailed():
		return ConditionallyFailed
	default:
		return Failed
	}
}

// FieldResult records the verdict for one field path.
type FieldResult struct {
	Path     string
	Status   Status
	Expected string
	Actual   any
	Detail   *expect.ExpressionResult
}

// Result aggregates field verdicts for one candidate/filter pair.
type Result struct {
	Name   string
	Counts map[Status]int
	Cause  error
	Fields []FieldResult
}

// NewResult returns an empty result for the named filter message.
func NewResult(name string) *Result {
	return &Result{Name: name, Counts: map[Status]int{}}
}

// Add records a field verdict.
func (r *Result) Add(field FieldResult) {
	if r.Counts == nil {
		r.Counts = map[Status]int{}
	}
	r.Counts[field.Status]++
	r.Fields = append(r.Fields, field)
}

func (r *Result) Count(status Status) int {
	if r == nil {
		return 0
	}
	return r.Counts[status]
}

// Failed counts FAILED and CONDITIONALLY_FAILED fields.
func (r *Result) Failed() int {
	return r.Count(Failed) + r.Count(ConditionallyFailed)
}

func (r *Result) ConditionallyPassed() int {
	return r.Count(ConditionallyPassed)
}

func (r *Result) Passed() int {
	return r.Count(Passed)
}

// KnownBugCause returns the known-bug explanation carried by Cause.
func (r *Result) KnownBugCause() (*expect.KnownBugCause, bool) {
	if r == nil || r.Cause == nil {
		return nil, false
	}
	var cause *expect.KnownBugCause
	if errors.As(r.Cause, &cause) {
		return cause, true
	}
	return nil, false
}

// FailedFields returns the paths of fields counted by Failed.
func (r *Result) FailedFields() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, field := range r.Fields {
		if field.Status == Failed || field.Status == ConditionallyFailed {
			out = append(out, field.Path)
		}
	}
	return out
}

func (r *Result) String() string {
	if r == nil {
		return "<not applicable>"
	}
	parts := make([]string, 0, 5)
	for _, status := range []Status{Passed, ConditionallyPassed, ConditionallyFailed, Failed, NA} {
		if n := r.Counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		}
	}
	return fmt.Sprintf("%s{%s}", r.Name, strings.Join(parts, " "))
}
