// Package memory provides the in-process queue used in development.
// There is no redelivery and no durability: a crash loses queued jobs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/convertfix/audit-service/internal/audit"
)

// Queue is a bounded in-memory job queue with context-aware operations.
type Queue struct {
	ch      chan audit.Job
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan audit.Job, capacity),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, job audit.Job) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: enqueue canceled: %v", audit.ErrQueue, ctx.Err())
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (audit.Job, error) {
	select {
	case <-ctx.Done():
		return audit.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return audit.Job{}, errors.New("queue closed")
		}
		return job, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
