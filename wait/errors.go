package wait

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/pkg/checkpoint"
	"github.com/goliatone/go-expect/stream"
)

const (
	ReasonNoMatch        = "no message matching filter"
	ReasonNoFullMatch    = "no message fully matched the filter"
	ReasonUnknownBugs    = "known bugs partially reproduced, but unknown bugs present"
	ReasonCountMismatch  = "message count did not satisfy the expectation"
	ReasonStructuralLegs = "repeating groups could not be aligned with the filter"
)

// PolicyViolationError reports a filter whose message type the stored
// message type policy never retains, so no wait could ever observe it.
type PolicyViolationError struct {
	Type   string
	Policy stream.TypePolicy
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("wait: message type %q is not stored by the stream (%s)", e.Type, e.Policy)
}

// Diagnostics are the checkpoint and timing facts attached to mismatches.
type Diagnostics struct {
	Checkpoint    checkpoint.Checkpoint
	HasCheckpoint bool
	Started       time.Time
	Deadline      time.Time
	Now           time.Time
	Scanned       int
}

func (d Diagnostics) String() string {
	cp := "no checkpoint"
	if d.HasCheckpoint {
		cp = "checkpoint " + d.Checkpoint.String()
	}
	return fmt.Sprintf("%s, scanned %d, started %s, deadline %s, now %s",
		cp, d.Scanned, stamp(d.Started), stamp(d.Deadline), stamp(d.Now))
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// WaitMismatchError reports a wait that did not resolve to one acceptable
// message.
type WaitMismatchError struct {
	Filter      string
	Reason      string
	Candidates  []Match
	Diagnostics Diagnostics
	Err         error
}

func (e *WaitMismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "wait: %s %q (%d candidates; %s)", e.Reason, e.Filter, len(e.Candidates), e.Diagnostics)
	if len(e.Candidates) == 1 && e.Candidates[0].Comparison != nil {
		if failed := e.Candidates[0].Comparison.FailedFields(); len(failed) > 0 {
			fmt.Fprintf(&sb, ": failed fields %s", strings.Join(failed, ", "))
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *WaitMismatchError) Unwrap() error {
	return e.Err
}

// CountMismatchError reports a count whose cardinality failed the
// expectation.
type CountMismatchError struct {
	Filter      string
	Expected    string
	Actual      int
	Reason      string
	Verdict     *expect.ExpressionResult
	Diagnostics Diagnostics
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("wait: %s %q: expected %s, got %d (%s)", e.Reason, e.Filter, e.Expected, e.Actual, e.Diagnostics)
}

func (e *CountMismatchError) Unwrap() error {
	if e.Verdict == nil {
		return nil
	}
	return e.Verdict.Cause()
}

// IsMismatch reports whether err is a wait or count mismatch.
func IsMismatch(err error) bool {
	var waitErr *WaitMismatchError
	var countErr *CountMismatchError
	return errors.As(err, &waitErr) || errors.As(err, &countErr)
}

func describeBugs(bugs []expect.BugDescriptor) string {
	parts := make([]string, len(bugs))
	for i, bug := range bugs {
		parts[i] = bug.String()
	}
	return strings.Join(parts, ", ")
}
