// Package stream provides an in-process, append-only message queue whose
// consumers read through checkpointed cursors.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/checkpoint"
)

var (
	ErrClosed    = errors.New("stream: queue closed")
	ErrNoMessage = errors.New("stream: no message available")
)

// QueueOption customises a Queue.
type QueueOption func(*queueConfig)

type queueConfig struct {
	policy TypePolicy
	store  checkpoint.Store
	logger *slog.Logger
	clock  func() time.Time
}

// WithTypePolicy restricts which message types are stored.
func WithTypePolicy(policy TypePolicy) QueueOption {
	return func(cfg *queueConfig) {
		cfg.policy = policy
	}
}

// WithStore persists cursor checkpoints. Defaults to a MemoryStore.
func WithStore(store checkpoint.Store) QueueOption {
	return func(cfg *queueConfig) {
		cfg.store = store
	}
}

// WithLogger sets the logger for dropped messages and checkpoint writes.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(cfg *queueConfig) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source used for entry and checkpoint
// timestamps.
func WithClock(clock func() time.Time) QueueOption {
	return func(cfg *queueConfig) {
		cfg.clock = clock
	}
}

type entry struct {
	seq uint64
	msg message.Message
	at  time.Time
}

// Queue is an append-only message log. Publishers append, cursors read.
type Queue struct {
	name   string
	policy TypePolicy
	store  checkpoint.Store
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	entries []entry
	notify  chan struct{}
	closed  bool
	dropped uint64
}

// NewQueue returns an open, empty queue named name. Checkpoints go to a
// MemoryStore unless WithStore is given.
func NewQueue(name string, opts ...QueueOption) *Queue {
	cfg := queueConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = checkpoint.NewMemoryStore()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return &Queue{
		name:   name,
		policy: cfg.policy,
		store:  cfg.store,
		logger: cfg.logger.With(slog.String("component", "stream"), slog.String("stream", name)),
		clock:  cfg.clock,
		notify: make(chan struct{}),
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Policy() TypePolicy {
	return q.policy
}

// Publish appends msg and wakes waiting cursors. Messages whose type the
// policy does not store are dropped and reported with stored=false.
func (q *Queue) Publish(msg message.Message) (seq uint64, stored bool, err error) {
	if msg == nil {
		return 0, false, fmt.Errorf("stream: message is required")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, false, ErrClosed
	}
	if !q.policy.Allows(msg.Name()) {
		q.dropped++
		q.logger.Debug("message dropped by type policy", slog.String("type", msg.Name()))
		return 0, false, nil
	}
	seq = uint64(len(q.entries)) + 1
	q.entries = append(q.entries, entry{seq: seq, msg: msg, at: q.clock()})
	close(q.notify)
	q.notify = make(chan struct{})
	return seq, true, nil
}

// Close stops publishing. Cursors drain what was stored and then report
// exhaustion.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}

// Len returns the number of stored messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns how many published messages the policy discarded.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Open returns a cursor for consumer positioned after its stored
// checkpoint, or at the head of the queue when it has none.
func (q *Queue) Open(ctx context.Context, consumer string) (*Cursor, error) {
	ref := checkpoint.Ref{Stream: q.name, Consumer: consumer}
	cp, ok, err := q.store.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("stream: open %s: %w", consumer, err)
	}
	cursor := &Cursor{queue: q, consumer: consumer}
	if ok {
		cursor.position = cp.Seq
		cursor.checkpoint = cp
		cursor.hasCheckpoint = true
	}
	q.logger.Debug("cursor opened",
		slog.String("consumer", consumer),
		slog.Uint64("position", cursor.position),
		slog.Bool("resumed", ok),
	)
	return cursor, nil
}

// poll returns the entry after position, the channel signalling the next
// publish, and whether the queue is closed.
func (q *Queue) poll(position uint64) (*entry, <-chan struct{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if position < uint64(len(q.entries)) {
		e := q.entries[position]
		return &e, nil, q.closed
	}
	return nil, q.notify, q.closed
}
