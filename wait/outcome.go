package wait

import (
	"context"
	"time"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/checkpoint"
)

// Stream is the checkpointed message source a scan consumes.
type Stream interface {
	// HasNext blocks up to timeout for another message. It reports false
	// on timeout or exhaustion and an error when ctx is cancelled.
	HasNext(ctx context.Context, timeout time.Duration) (bool, error)
	Next(ctx context.Context) (message.Message, error)
	// UpdateCheckpoint marks the last message returned by Next as
	// consumed.
	UpdateCheckpoint(ctx context.Context) error
	Checkpoint() (checkpoint.Checkpoint, bool)
}

// Match pairs a candidate with its comparison against the filter.
type Match struct {
	Message    message.Message
	Comparison *compare.Result
}

// Outcome is the result of a single scan: ExactMatch, ConditionallyPassed
// or Timeout.
type Outcome interface {
	// Candidates returns the surviving candidates.
	Candidates() []Match
	isOutcome()
}

// ExactMatch is the first candidate with no failed and no conditionally
// passed fields. Scanning stops at it.
type ExactMatch struct {
	Match
}

// ConditionallyPassed is the first candidate whose only deviations are
// reproduced known bugs.
type ConditionallyPassed struct {
	Match
}

// Timeout ends a scan without an exact or conditional match. Partials
// holds candidates with at least one passed field.
type Timeout struct {
	Partials []Match
}

func (o ExactMatch) Candidates() []Match          { return []Match{o.Match} }
func (o ConditionallyPassed) Candidates() []Match { return []Match{o.Match} }
func (o Timeout) Candidates() []Match             { return o.Partials }

// WasEmpty reports whether no candidate matched any field.
func (o Timeout) WasEmpty() bool { return len(o.Partials) == 0 }

func (ExactMatch) isOutcome()          {}
func (ConditionallyPassed) isOutcome() {}
func (Timeout) isOutcome()             {}

// Status classifies a successful resolution.
type Status int

const (
	StatusMatched Status = iota + 1
	StatusKnownBug
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusKnownBug:
		return "known_bug"
	default:
		return "unknown"
	}
}

// KnownBugOutcome reports an expectation satisfied only through reproduced
// known bugs. It is a success the caller must branch on; Error lets
// callers that prefer error flow surface it unchanged.
type KnownBugOutcome struct {
	Message    message.Message
	Reproduced []expect.BugDescriptor
	Potential  []expect.BugDescriptor
}

func (o *KnownBugOutcome) Error() string {
	return "wait: expectation met through known bugs: " + describeBugs(o.Reproduced)
}

// Bugs renders the reproduced bugs.
func (o *KnownBugOutcome) Bugs() []string {
	out := make([]string, len(o.Reproduced))
	for i, bug := range o.Reproduced {
		out[i] = bug.String()
	}
	return out
}

// Resolution is the result of WaitForMessage.
type Resolution struct {
	Status     Status
	Message    message.Message
	Comparison *compare.Result
	KnownBug   *KnownBugOutcome
}

// CountResolution is the result of CountMessages.
type CountResolution struct {
	Status   Status
	Count    int
	Messages []message.Message
	Verdict  *expect.ExpressionResult
	KnownBug *KnownBugOutcome
}
