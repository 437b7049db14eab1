package queue

import (
	"context"
	"errors"
	"time"
)

// ErrCapacityExceeded reports a full queue. Callers should surface a
// retry-after signal rather than dropping the request silently.
var ErrCapacityExceeded = errors.New("request queue at capacity")

// RetryAfter is the backpressure hint returned with ErrCapacityExceeded.
const RetryAfter = 30 * time.Second

// Queue is a bounded FIFO absorbing bursts ahead of the prediction workers.
// Enqueue never blocks; at capacity it refuses with ErrCapacityExceeded.
type Queue[T any] struct {
	ch chan T
}

// New creates a Queue with the given capacity ceiling.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Enqueue admits a request or refuses immediately when full.
func (q *Queue[T]) Enqueue(item T) error {
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrCapacityExceeded
	}
}

// Dequeue yields the oldest queued request, blocking until one arrives or
// the context is cancelled. Arrival order is preserved.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len reports the current depth.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
