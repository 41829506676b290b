// Package pipeline connects the capture, segmentation, recognition, and
// output stages of the dictation system.
//
// Stages communicate exclusively through bounded staging queues: one
// producer, one consumer per queue, no shared mutable state across stage
// boundaries. Frame-level queues must never drop audio (that would break VAD
// continuity), so the only back-pressure policy offered is blocking; queue
// capacities are sized to absorb scheduling jitter instead.
package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by [Queue.Put] after Close.
var ErrQueueClosed = errors.New("pipeline: queue is closed")

// Queue is a bounded FIFO hand-off between exactly one producer and one
// consumer. Close acts as the shutdown sentinel: it unblocks the consumer
// once remaining values are drained.
type Queue[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity values.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Put appends v, blocking while the queue is full. It returns
// [ErrQueueClosed] after Close and ctx.Err() on cancellation.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	// Fast path: room available, no need to consult ctx.
	select {
	case q.ch <- v:
		return nil
	default:
	}
	select {
	case q.ch <- v:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get removes the oldest value, blocking until one is available. The second
// return value is false once the queue is closed and fully drained, or when
// ctx is cancelled.
func (q *Queue[T]) Get(ctx context.Context) (T, bool) {
	var zero T

	// Drain buffered values even after Close.
	select {
	case v := <-q.ch:
		return v, true
	default:
	}

	select {
	case v := <-q.ch:
		return v, true
	case <-q.done:
		select {
		case v := <-q.ch:
			return v, true
		default:
			return zero, false
		}
	case <-ctx.Done():
		return zero, false
	}
}

// Len reports the number of buffered values.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Close delivers the shutdown sentinel. Values already queued are still
// delivered; subsequent Put calls fail. Safe to call multiple times.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
