package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/checkpoint"
)

// Cursor reads one consumer's view of a Queue. A Cursor is not safe for
// concurrent use.
type Cursor struct {
	queue    *Queue
	consumer string

	position      uint64
	delivered     *entry
	checkpoint    checkpoint.Checkpoint
	hasCheckpoint bool
}

func (c *Cursor) Consumer() string {
	return c.consumer
}

// Position returns the sequence of the last message handed out by Next.
func (c *Cursor) Position() uint64 {
	return c.position
}

// HasNext blocks until a message is available, the timeout elapses, the
// queue is closed and drained, or ctx is cancelled. Cancellation is
// reported as an error; timeout and exhaustion report false.
func (c *Cursor) HasNext(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		e, wake, closed := c.queue.poll(c.position)
		if e != nil {
			return true, nil
		}
		if closed {
			return false, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		case <-wake:
			timer.Stop()
		}
	}
}

// Next returns the message after the current position without blocking.
func (c *Cursor) Next(ctx context.Context) (message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, _, _ := c.queue.poll(c.position)
	if e == nil {
		return nil, ErrNoMessage
	}
	c.position = e.seq
	c.delivered = e
	return e.msg, nil
}

// UpdateCheckpoint persists the position of the last delivered message so
// a later Open resumes past it.
func (c *Cursor) UpdateCheckpoint(ctx context.Context) error {
	if c.delivered == nil {
		return nil
	}
	if c.hasCheckpoint && c.checkpoint.Seq >= c.delivered.seq {
		return nil
	}
	saved, err := c.queue.store.Save(ctx, checkpoint.Checkpoint{
		ID:        c.checkpoint.ID,
		Stream:    c.queue.name,
		Consumer:  c.consumer,
		Seq:       c.delivered.seq,
		Timestamp: c.queue.clock(),
	})
	if err != nil {
		return fmt.Errorf("stream: update checkpoint %s: %w", c.consumer, err)
	}
	c.checkpoint = saved
	c.hasCheckpoint = true
	c.queue.logger.Debug("checkpoint advanced",
		slog.String("consumer", c.consumer),
		slog.Uint64("seq", saved.Seq),
	)
	return nil
}

// Checkpoint returns the last checkpoint saved or loaded by this cursor.
func (c *Cursor) Checkpoint() (checkpoint.Checkpoint, bool) {
	return c.checkpoint, c.hasCheckpoint
}
