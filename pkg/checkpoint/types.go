package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrRegression = errors.New("checkpoint: sequence regression")

// Ref identifies the checkpoint one consumer holds on one stream.
type Ref struct {
	Stream   string
	Consumer string
}

// Checkpoint marks the last stream position a consumer has accepted.
type Checkpoint struct {
	ID        string            `json:"id"`
	Stream    string            `json:"stream"`
	Consumer  string            `json:"consumer"`
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the checkpoint for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (cp Checkpoint, ok bool, err error)
	Save(ctx context.Context, cp Checkpoint) (Checkpoint, error)
}

func (r Ref) Identifier() (string, error) {
	if r.Stream == "" {
		return "", fmt.Errorf("checkpoint: stream is required")
	}
	if r.Consumer == "" {
		return "", fmt.Errorf("checkpoint: consumer is required for stream %q", r.Stream)
	}
	return r.Stream + "/" + r.Consumer, nil
}

// Ref returns the reference the checkpoint is stored under.
func (c Checkpoint) Ref() Ref {
	return Ref{Stream: c.Stream, Consumer: c.Consumer}
}

func (c Checkpoint) IsZero() bool {
	return c.ID == "" && c.Seq == 0 && c.Timestamp.IsZero()
}

func (c Checkpoint) String() string {
	if c.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s/%s#%d@%s", c.Stream, c.Consumer, c.Seq, c.Timestamp.UTC().Format(time.RFC3339Nano))
}

// prepare fills storage-owned fields before a save.
func prepare(cp Checkpoint, previous Checkpoint, found bool) (Checkpoint, error) {
	if _, err := cp.Ref().Identifier(); err != nil {
		return Checkpoint{}, err
	}
	if found && cp.Seq < previous.Seq {
		return Checkpoint{}, fmt.Errorf("%w: stored %d, got %d", ErrRegression, previous.Seq, cp.Seq)
	}
	out := clone(cp)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	return out, nil
}

func clone(cp Checkpoint) Checkpoint {
	out := cp
	if cp.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(cp.Extra))
	for k, v := range cp.Extra {
		out.Extra[k] = v
	}
	return out
}
