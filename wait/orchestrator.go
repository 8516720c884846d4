// Package wait drives checkpointed stream scans that decide whether a
// message satisfying a filter arrived in time, and counts the messages
// that did.
package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/legs"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/activity"
	"github.com/goliatone/go-expect/stream"
)

const (
	operationWait  = "wait"
	operationCount = "count"
)

// Candidate classifications reported to metrics.
const (
	candidateNotApplicable = "not_applicable"
	candidateExact         = "exact"
	candidateConditional   = "conditional"
	candidateIgnored       = "conditional_ignored"
	candidatePartial       = "partial"
	candidateRejected      = "rejected"
	candidateAccepted      = "accepted"
)

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSettings sets the comparison settings, including leg reordering.
func WithSettings(settings compare.Settings) Option {
	return func(o *Orchestrator) {
		o.settings = settings
	}
}

// WithTypePolicy sets the stored message type policy checked before every
// scan.
func WithTypePolicy(policy stream.TypePolicy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithLogger sets the logger for scan and resolution records. A nil
// logger keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for deadlines.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithEmitter reports every resolution as an activity event.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// WithMetrics records outcomes and scan durations. A nil Metrics disables
// recording.
func WithMetrics(metrics *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// Orchestrator scans streams on behalf of waits and counts. It holds no
// per-call state and is safe for concurrent use.
type Orchestrator struct {
	comparator compare.Comparator
	settings   compare.Settings
	policy     stream.TypePolicy
	logger     *slog.Logger
	clock      func() time.Time
	emitter    *activity.Emitter
	metrics    *Metrics
}

// New builds an orchestrator around comparator. A nil comparator selects
// compare.Default.
func New(comparator compare.Comparator, opts ...Option) *Orchestrator {
	if comparator == nil {
		comparator = compare.Default{}
	}
	o := &Orchestrator{
		comparator: comparator,
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.logger = o.logger.With(slog.String("component", "wait"))
	return o
}

// Scan consumes s until an exact match, the timeout or exhaustion.
func (o *Orchestrator) Scan(ctx context.Context, s Stream, filter message.Message, timeout time.Duration) (Outcome, error) {
	outcome, _, err := o.scan(ctx, s, filter, timeout)
	return outcome, err
}

func (o *Orchestrator) checkPolicy(filter message.Message) error {
	if filter == nil {
		return fmt.Errorf("wait: filter message is required")
	}
	if o.policy.Empty() || o.policy.Allows(filter.Name()) {
		return nil
	}
	return &PolicyViolationError{Type: filter.Name(), Policy: o.policy}
}

// scanState is the per-call state of one scan.
type scanState struct {
	stream Stream
	filter message.Message
	diag   Diagnostics
}

func (o *Orchestrator) newScan(s Stream, filter message.Message, timeout time.Duration) *scanState {
	started := o.clock()
	return &scanState{
		stream: s,
		filter: filter,
		diag:   Diagnostics{Started: started, Deadline: started.Add(timeout)},
	}
}

func (o *Orchestrator) scan(ctx context.Context, s Stream, filter message.Message, timeout time.Duration) (Outcome, Diagnostics, error) {
	if err := o.checkPolicy(filter); err != nil {
		return nil, Diagnostics{}, err
	}
	state := o.newScan(s, filter, timeout)

	var (
		exact       *Match
		conditional *Match
		partials    []Match
	)
	err := o.consume(ctx, state, func(candidate message.Message, result *compare.Result) (bool, error) {
		switch {
		case result.Failed() == 0 && result.ConditionallyPassed() == 0:
			o.metrics.RecordCandidate(candidateExact)
			if err := s.UpdateCheckpoint(ctx); err != nil {
				return false, err
			}
			exact = &Match{Message: candidate, Comparison: result}
			return true, nil
		case result.Failed() == 0:
			if conditional != nil {
				o.metrics.RecordCandidate(candidateIgnored)
				return false, nil
			}
			o.metrics.RecordCandidate(candidateConditional)
			if err := s.UpdateCheckpoint(ctx); err != nil {
				return false, err
			}
			conditional = &Match{Message: candidate, Comparison: result}
		case result.Passed() > 0:
			o.metrics.RecordCandidate(candidatePartial)
			partials = append(partials, Match{Message: candidate, Comparison: result})
		default:
			o.metrics.RecordCandidate(candidateRejected)
		}
		return false, nil
	})
	o.finish(state)
	o.metrics.ObserveScan(operationWait, state.diag.Now.Sub(state.diag.Started))
	if err != nil {
		return nil, state.diag, err
	}

	switch {
	case exact != nil:
		return ExactMatch{Match: *exact}, state.diag, nil
	case conditional != nil:
		return ConditionallyPassed{Match: *conditional}, state.diag, nil
	default:
		return Timeout{Partials: partials}, state.diag, nil
	}
}

// consume runs visit for every applicable candidate until visit stops the
// scan or HasNext reports nothing more within the remaining time. Remaining
// time is recomputed from the absolute deadline before every call and
// clamped at zero, so buffered messages are still drained once it runs out.
func (o *Orchestrator) consume(ctx context.Context, state *scanState, visit func(message.Message, *compare.Result) (bool, error)) error {
	if state.stream == nil {
		return fmt.Errorf("wait: stream is required")
	}
	for {
		remaining := state.diag.Deadline.Sub(o.clock())
		if remaining < 0 {
			remaining = 0
		}
		ok, err := state.stream.HasNext(ctx, remaining)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		candidate, err := state.stream.Next(ctx)
		if err != nil {
			return err
		}
		state.diag.Scanned++

		result, err := o.compare(ctx, candidate, state.filter)
		if err != nil {
			return err
		}
		if result == nil {
			o.metrics.RecordCandidate(candidateNotApplicable)
		} else {
			stop, err := visit(candidate, result)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

// compare reorders repeating groups when enabled so unordered legs do not
// fail positionally, then runs the comparator.
func (o *Orchestrator) compare(ctx context.Context, candidate, filter message.Message) (*compare.Result, error) {
	compared := candidate
	if o.settings.ReorderGroups {
		reordered, err := o.matcher().Reorder(ctx, candidate, filter)
		switch {
		case err == nil:
			compared = reordered
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
	}
	return o.comparator.Compare(compared, filter, o.settings), nil
}

func (o *Orchestrator) matcher() legs.Matcher {
	return legs.Matcher{Comparator: o.comparator, Settings: o.settings, Logger: o.logger}
}

func (o *Orchestrator) finish(state *scanState) {
	state.diag.Now = o.clock()
	if state.stream != nil {
		state.diag.Checkpoint, state.diag.HasCheckpoint = state.stream.Checkpoint()
	}
}

// WaitForMessage scans for the filter and resolves the outcome to a single
// message. Exactly one surviving candidate must remain: it succeeds when
// no field failed, resolves to a known bug when its deviations are all
// reproduced known bugs, and otherwise yields a *WaitMismatchError.
func (o *Orchestrator) WaitForMessage(ctx context.Context, s Stream, filter message.Message, timeout time.Duration) (*Resolution, error) {
	outcome, diag, err := o.scanFor(ctx, s, filter, timeout)
	if err != nil {
		return nil, err
	}
	resolution, err := o.resolveSingle(ctx, filter, outcome, diag)
	o.reportWait(ctx, s, filter, diag, resolution, err)
	return resolution, err
}

func (o *Orchestrator) scanFor(ctx context.Context, s Stream, filter message.Message, timeout time.Duration) (Outcome, Diagnostics, error) {
	outcome, diag, err := o.scan(ctx, s, filter, timeout)
	if err != nil {
		var policyErr *PolicyViolationError
		if errors.As(err, &policyErr) {
			o.metrics.RecordOutcome(operationWait, "policy_violation")
		}
		o.logger.Warn("wait aborted", slog.String("filter", filterName(filter)), slog.Any("error", err))
	}
	return outcome, diag, err
}

func (o *Orchestrator) resolveSingle(ctx context.Context, filter message.Message, outcome Outcome, diag Diagnostics) (*Resolution, error) {
	candidates := outcome.Candidates()
	mismatch := func(reason string, err error) error {
		return &WaitMismatchError{
			Filter:      filterName(filter),
			Reason:      reason,
			Candidates:  candidates,
			Diagnostics: diag,
			Err:         err,
		}
	}
	switch len(candidates) {
	case 0:
		return nil, mismatch(ReasonNoMatch, nil)
	case 1:
	default:
		return nil, mismatch(ReasonNoFullMatch, nil)
	}

	match := candidates[0]
	result := match.Comparison
	if result.Failed() > 0 {
		return nil, mismatch(ReasonNoFullMatch, nil)
	}

	var bugs *expect.KnownBugCause
	if result.ConditionallyPassed() > 0 {
		cause, ok := result.KnownBugCause()
		if !ok || len(cause.Reproduced) == 0 {
			return nil, mismatch(ReasonUnknownBugs, result.Cause)
		}
		bugs = cause
	}

	reordered, err := o.matcher().Reorder(ctx, match.Message, filter)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mismatch(ReasonStructuralLegs, err)
	}

	resolution := &Resolution{Status: StatusMatched, Message: reordered, Comparison: result}
	if bugs != nil {
		resolution.Status = StatusKnownBug
		resolution.KnownBug = &KnownBugOutcome{
			Message:    reordered,
			Reproduced: bugs.Reproduced,
			Potential:  bugs.Potential,
		}
	}
	return resolution, nil
}

// CountMessages accepts every candidate with no failed field until the
// deadline or exhaustion, advancing the checkpoint per accepted candidate,
// then validates the number accepted against expected.
func (o *Orchestrator) CountMessages(ctx context.Context, s Stream, filter message.Message, expected expect.Filter, timeout time.Duration) (*CountResolution, error) {
	if expected == nil {
		return nil, fmt.Errorf("wait: count expectation is required")
	}
	if err := o.checkPolicy(filter); err != nil {
		o.metrics.RecordOutcome(operationCount, "policy_violation")
		return nil, err
	}

	state := o.newScan(s, filter, timeout)
	var accepted []message.Message
	err := o.consume(ctx, state, func(candidate message.Message, result *compare.Result) (bool, error) {
		if result.Failed() > 0 {
			o.metrics.RecordCandidate(candidateRejected)
			return false, nil
		}
		o.metrics.RecordCandidate(candidateAccepted)
		if err := s.UpdateCheckpoint(ctx); err != nil {
			return false, err
		}
		accepted = append(accepted, candidate)
		return false, nil
	})
	o.finish(state)
	o.metrics.ObserveScan(operationCount, state.diag.Now.Sub(state.diag.Started))
	if err != nil {
		o.logger.Warn("count aborted", slog.String("filter", filterName(filter)), slog.Any("error", err))
		return nil, err
	}

	diag := state.diag
	resolution, err := o.resolveCount(filter, expected, accepted, diag)
	o.reportCount(ctx, s, filter, expected, diag, len(accepted), resolution, err)
	return resolution, err
}

func (o *Orchestrator) resolveCount(filter message.Message, expected expect.Filter, accepted []message.Message, diag Diagnostics) (*CountResolution, error) {
	verdict := expected.Validate(len(accepted))
	mismatch := func(reason string) error {
		return &CountMismatchError{
			Filter:      filterName(filter),
			Expected:    expected.Condition(),
			Actual:      len(accepted),
			Reason:      reason,
			Verdict:     verdict,
			Diagnostics: diag,
		}
	}
	resolution := &CountResolution{Status: StatusMatched, Count: len(accepted), Messages: accepted, Verdict: verdict}

	switch compare.StatusOf(verdict) {
	case compare.Passed:
		return resolution, nil
	case compare.ConditionallyPassed:
		var cause *expect.KnownBugCause
		if !errors.As(verdict.Cause(), &cause) || len(cause.Reproduced) == 0 {
			return nil, mismatch(ReasonUnknownBugs)
		}
		resolution.Status = StatusKnownBug
		resolution.KnownBug = &KnownBugOutcome{Reproduced: cause.Reproduced, Potential: cause.Potential}
		return resolution, nil
	default:
		return nil, mismatch(ReasonCountMismatch)
	}
}

func filterName(filter message.Message) string {
	if filter == nil {
		return ""
	}
	return filter.Name()
}
