package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the wait orchestrator.
const (
	VerbWaitMatched   = "wait.matched"
	VerbWaitKnownBug  = "wait.known_bug"
	VerbWaitMismatch  = "wait.mismatch"
	VerbCountPassed   = "count.passed"
	VerbCountKnownBug = "count.known_bug"
	VerbCountMismatch = "count.mismatch"
)

// ObjectTypeExpectation is the object type of every verification event.
const ObjectTypeExpectation = "expectation"

// VerificationEventInput describes one resolved wait or count.
type VerificationEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any

	// Filter is the message type the expectation targeted.
	Filter     string
	Stream     string
	Consumer   string
	Checkpoint uint64
	Candidates int
	Count      int
	Expected   string
	Reason     string
	Bugs       []string
	Elapsed    time.Duration
	OccurredAt time.Time
}

func BuildWaitMatchedEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbWaitMatched, input)
}

func BuildWaitKnownBugEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbWaitKnownBug, input)
}

func BuildWaitMismatchEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbWaitMismatch, input)
}

func BuildCountPassedEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbCountPassed, input)
}

func BuildCountKnownBugEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbCountKnownBug, input)
}

func BuildCountMismatchEvent(input VerificationEventInput) Event {
	return buildVerificationEvent(VerbCountMismatch, input)
}

func buildVerificationEvent(verb string, input VerificationEventInput) Event {
	metadata := CloneMetadata(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Filter != "" {
		set("filter", input.Filter)
	}
	if input.Stream != "" {
		set("stream", input.Stream)
	}
	if input.Consumer != "" {
		set("consumer", input.Consumer)
	}
	if input.Checkpoint > 0 {
		set("checkpoint_seq", input.Checkpoint)
	}
	set("candidates", input.Candidates)
	if strings.HasPrefix(verb, "count.") {
		set("count", input.Count)
	}
	if input.Expected != "" {
		set("expected", input.Expected)
	}
	if input.Reason != "" {
		set("reason", input.Reason)
	}
	if len(input.Bugs) > 0 {
		set("bugs", append([]string{}, input.Bugs...))
	}
	if input.Elapsed > 0 {
		set("elapsed_ms", input.Elapsed.Milliseconds())
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" && input.Stream != "" && input.Consumer != "" {
		objectID = input.Stream + "/" + input.Consumer
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Filter)
	}
	if objectID == "" {
		objectID = ObjectTypeExpectation
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeExpectation,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}
