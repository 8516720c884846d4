package wait

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/activity"
)

type consumerNamer interface {
	Consumer() string
}

func (o *Orchestrator) eventInput(s Stream, filter message.Message, diag Diagnostics) activity.VerificationEventInput {
	input := activity.VerificationEventInput{
		Filter:     filterName(filter),
		Candidates: diag.Scanned,
		Elapsed:    diag.Now.Sub(diag.Started),
		OccurredAt: diag.Now,
	}
	if diag.HasCheckpoint {
		input.Stream = diag.Checkpoint.Stream
		input.Consumer = diag.Checkpoint.Consumer
		input.Checkpoint = diag.Checkpoint.Seq
	} else if named, ok := s.(consumerNamer); ok {
		input.Consumer = named.Consumer()
	}
	return input
}

func (o *Orchestrator) reportWait(ctx context.Context, s Stream, filter message.Message, diag Diagnostics, resolution *Resolution, err error) {
	if cancelled(err) {
		return
	}
	input := o.eventInput(s, filter, diag)
	var event activity.Event

	switch {
	case err != nil:
		var mismatch *WaitMismatchError
		if errors.As(err, &mismatch) {
			input.Reason = mismatch.Reason
		} else {
			input.Reason = err.Error()
		}
		event = activity.BuildWaitMismatchEvent(input)
		o.metrics.RecordOutcome(operationWait, "mismatch")
		o.logger.Info("wait mismatch",
			slog.String("filter", input.Filter),
			slog.String("reason", input.Reason),
			slog.Int("candidates", diag.Scanned),
		)
	case resolution.Status == StatusKnownBug:
		input.Bugs = resolution.KnownBug.Bugs()
		event = activity.BuildWaitKnownBugEvent(input)
		o.metrics.RecordOutcome(operationWait, resolution.Status.String())
		o.logger.Info("wait matched known bugs",
			slog.String("filter", input.Filter),
			slog.Any("bugs", input.Bugs),
		)
	default:
		event = activity.BuildWaitMatchedEvent(input)
		o.metrics.RecordOutcome(operationWait, resolution.Status.String())
		o.logger.Debug("wait matched",
			slog.String("filter", input.Filter),
			slog.Int("candidates", diag.Scanned),
		)
	}
	o.emit(ctx, event)
}

func (o *Orchestrator) reportCount(ctx context.Context, s Stream, filter message.Message, expected expect.Filter, diag Diagnostics, n int, resolution *CountResolution, err error) {
	input := o.eventInput(s, filter, diag)
	input.Count = n
	input.Expected = expected.Condition()
	var event activity.Event

	switch {
	case err != nil:
		var mismatch *CountMismatchError
		if errors.As(err, &mismatch) {
			input.Reason = mismatch.Reason
		} else {
			input.Reason = err.Error()
		}
		event = activity.BuildCountMismatchEvent(input)
		o.metrics.RecordOutcome(operationCount, "mismatch")
		o.logger.Info("count mismatch",
			slog.String("filter", input.Filter),
			slog.Int("count", n),
			slog.String("expected", input.Expected),
		)
	case resolution.Status == StatusKnownBug:
		input.Bugs = resolution.KnownBug.Bugs()
		event = activity.BuildCountKnownBugEvent(input)
		o.metrics.RecordOutcome(operationCount, resolution.Status.String())
	default:
		event = activity.BuildCountPassedEvent(input)
		o.metrics.RecordOutcome(operationCount, resolution.Status.String())
		o.logger.Debug("count passed", slog.String("filter", input.Filter), slog.Int("count", n))
	}
	o.emit(ctx, event)
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// emit never fails the verification; sink errors are logged.
func (o *Orchestrator) emit(ctx context.Context, event activity.Event) {
	if !o.emitter.Enabled() {
		return
	}
	if err := o.emitter.Emit(ctx, event); err != nil {
		o.logger.Warn("activity emit failed", slog.String("verb", event.Verb), slog.Any("error", err))
	}
}
