package activity

import (
	"context"
	"testing"
	"time"
)

func TestBuildWaitKnownBugEventIncludesVerificationMetadata(t *testing.T) {
	meta := map[string]any{"suite": "fills"}
	input := VerificationEventInput{
		ActorID:    " runner ",
		Filter:     "ExecutionReport",
		Stream:     "fix-in",
		Consumer:   "test-7",
		Checkpoint: 12,
		Candidates: 3,
		Bugs:       []string{"late fill [timing]"},
		Elapsed:    1500 * time.Millisecond,
		Metadata:   meta,
		Recipients: []string{"qa@example.com"},
	}

	event := BuildWaitKnownBugEvent(input)

	if event.Verb != VerbWaitKnownBug {
		t.Fatalf("expected verb %s got %s", VerbWaitKnownBug, event.Verb)
	}
	if event.ObjectType != ObjectTypeExpectation || event.ObjectID != "fix-in/test-7" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "runner" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Metadata["filter"] != "ExecutionReport" || event.Metadata["checkpoint_seq"] != uint64(12) {
		t.Fatalf("expected filter and checkpoint metadata, got %+v", event.Metadata)
	}
	if event.Metadata["candidates"] != 3 || event.Metadata["elapsed_ms"] != int64(1500) {
		t.Fatalf("expected candidates and elapsed metadata, got %+v", event.Metadata)
	}
	if _, ok := event.Metadata["count"]; ok {
		t.Fatalf("wait events must not carry a count")
	}
	bugs, ok := event.Metadata["bugs"].([]string)
	if !ok || len(bugs) != 1 {
		t.Fatalf("expected bugs metadata, got %v", event.Metadata["bugs"])
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "qa@example.com" {
		t.Fatalf("expected input recipients untouched")
	}
	if meta["filter"] != nil {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildCountEventsCarryCount(t *testing.T) {
	event := BuildCountMismatchEvent(VerificationEventInput{Filter: "Quote", Count: 2, Expected: ">=3", Reason: "count mismatch"})
	if event.Verb != VerbCountMismatch || event.ObjectID != "Quote" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Metadata["count"] != 2 || event.Metadata["expected"] != ">=3" || event.Metadata["reason"] != "count mismatch" {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
}

func TestBuildVerificationEventFallbackObjectID(t *testing.T) {
	event := BuildCountPassedEvent(VerificationEventInput{})
	if event.ObjectID != ObjectTypeExpectation {
		t.Fatalf("expected fallback object ID, got %q", event.ObjectID)
	}
}

func TestVerificationEventsWorkWithEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "ci", TenantID: "desk-1"})

	for _, event := range []Event{
		BuildWaitMatchedEvent(VerificationEventInput{Filter: "Order"}),
		BuildWaitMismatchEvent(VerificationEventInput{Filter: "Order", Reason: "no message matching filter"}),
	} {
		if err := emitter.Emit(context.Background(), event); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	verbs := capture.Verbs()
	if len(verbs) != 2 || verbs[0] != VerbWaitMatched || verbs[1] != VerbWaitMismatch {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	last, ok := capture.Last()
	if !ok || last.ActorID != "ci" || last.TenantID != "desk-1" || last.Channel != DefaultChannel {
		t.Fatalf("expected emitter defaults applied, got %+v", last)
	}
}
