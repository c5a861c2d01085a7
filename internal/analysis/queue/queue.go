// Package queue provides the bounded FIFO queues connecting the pipeline
// stages. Queues are handed to components at construction time; there are
// no package-level queue singletons.
package queue

import (
	"context"
	"sync/atomic"
)

// Bounded is a bounded FIFO queue with a drop-oldest overflow policy.
// Push never blocks the producer: when the queue is saturated the oldest
// unconsumed item is discarded to make room. This keeps the capture side
// live regardless of consumer speed.
type Bounded[T any] struct {
	ch      chan T
	onDrop  func(T)
	dropped atomic.Uint64
}

// NewBounded creates a queue with the given capacity. onDrop, if not nil,
// is invoked with each item discarded on overflow.
func NewBounded[T any](size int, onDrop func(T)) *Bounded[T] {
	if size < 1 {
		size = 1
	}
	return &Bounded[T]{
		ch:     make(chan T, size),
		onDrop: onDrop,
	}
}

// Push enqueues v without blocking. If the queue is full the oldest item
// is dropped first.
func (q *Bounded[T]) Push(v T) {
	for {
		select {
		case q.ch <- v:
			return
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			if q.onDrop != nil {
				q.onDrop(old)
			}
		default:
			// a consumer drained the queue between the two selects,
			// loop and try the send again
		}
	}
}

// Pop blocks until an item is available or the context is cancelled.
// The second return value is false when the context ended first.
func (q *Bounded[T]) Pop(ctx context.Context) (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// TryPop returns the next item if one is immediately available.
func (q *Bounded[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of items currently queued.
func (q *Bounded[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return cap(q.ch)
}

// Dropped returns the total number of items discarded on overflow.
func (q *Bounded[T]) Dropped() uint64 {
	return q.dropped.Load()
}
