// Package router serializes outbound model calls and fails over across
// a priority-ordered model list.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultMinInterval is the spacing between dispatches, chosen to stay
// under the backend's concurrent-request detector.
const DefaultMinInterval = 2 * time.Second

// Queue runs tasks strictly one at a time, in FIFO order, with at least
// MinInterval between dispatch times. It is an injected instance, not a
// package singleton, so tests can run independent queues.
type Queue struct {
	minInterval time.Duration

	mu           sync.Mutex
	tail         chan struct{}
	lastDispatch time.Time
}

// NewQueue returns a queue with the given dispatch spacing.
func NewQueue(minInterval time.Duration) *Queue {
	return &Queue{
		minInterval: minInterval,
	}
}

// Enqueue appends the task to the chain, waits for its turn and the
// required spacing, runs it, and returns its error. A failing task does
// not block or poison later tasks.
func (q *Queue) Enqueue(ctx context.Context, task func(ctx context.Context) error) error {
	done := make(chan struct{})

	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Hand the turn over only once the predecessor finishes, so
			// an abandoned task cannot let a successor run concurrently.
			go func() {
				<-prev
				close(done)
			}()
			return errors.Wrap(ctx.Err(), "abandoned while queued")
		}
	}
	defer close(done)

	q.mu.Lock()
	wait := q.minInterval - time.Since(q.lastDispatch)
	q.mu.Unlock()
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "abandoned while waiting for dispatch slot")
		}
	}

	// Stamp at dispatch, not completion: spacing is between request
	// starts regardless of how long each call takes.
	q.mu.Lock()
	q.lastDispatch = time.Now()
	q.mu.Unlock()

	return task(ctx)
}
