// Package queue provides a bounded single-producer/single-consumer FIFO over
// a fixed backing array.
//
// Consumers block on a condition variable instead of spinning. What happens
// when the producer outruns the consumer is chosen per queue with a Policy.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrFull is returned by Push when the queue is full and the policy is
	// PolicyDropNewest.
	ErrFull = errors.New("queue: full")

	// ErrClosed is returned once the queue is closed and drained.
	ErrClosed = errors.New("queue: closed")
)

// Policy decides what Push does when the queue is full.
type Policy int

const (
	// PolicyBlock makes the producer wait for free space.
	PolicyBlock Policy = iota
	// PolicyDropNewest rejects the record being pushed.
	PolicyDropNewest
	// PolicyDropOldest evicts the oldest queued record to make room.
	PolicyDropOldest
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDropNewest:
		return "drop-newest"
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "block":
		return PolicyBlock, nil
	case "drop-newest":
		return PolicyDropNewest, nil
	case "drop-oldest":
		return PolicyDropOldest, nil
	default:
		return PolicyBlock, fmt.Errorf("queue: unknown policy %q", s)
	}
}

// Queue is a bounded FIFO of T.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	// One slot stays free so that head == tail means empty.
	buf  []T
	head int
	tail int

	policy  Policy
	closed  bool
	dropped uint64
	onDrop  func(T)
}

// New creates a queue holding up to capacity records.
func New[T any](capacity int, policy Policy) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{
		buf:    make([]T, capacity+1),
		policy: policy,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// OnDrop registers fn to be called with every record the policy discards.
// fn runs with the queue locked and must not call back into the queue.
func (q *Queue[T]) OnDrop(fn func(T)) {
	q.mu.Lock()
	q.onDrop = fn
	q.mu.Unlock()
}

// Push appends v. With PolicyBlock it waits for space until ctx is done.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if q.full() {
		switch q.policy {
		case PolicyDropNewest:
			q.drop(v)
			return ErrFull
		case PolicyDropOldest:
			old := q.buf[q.head]
			var zero T
			q.buf[q.head] = zero
			q.head = (q.head + 1) % len(q.buf)
			q.drop(old)
		default:
			for q.full() && !q.closed {
				if err := q.wait(ctx, q.notFull); err != nil {
					return err
				}
			}
			if q.closed {
				return ErrClosed
			}
		}
	}

	q.buf[q.tail] = v
	q.tail = (q.tail + 1) % len(q.buf)
	q.notEmpty.Signal()
	return nil
}

// Pop removes and returns the oldest record, waiting while the queue is
// empty. It returns ErrClosed once the queue is closed and empty, or the
// context error when ctx is done first.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.empty() {
		if q.closed {
			var zero T
			return zero, ErrClosed
		}
		if err := q.wait(ctx, q.notEmpty); err != nil {
			var zero T
			return zero, err
		}
	}
	return q.take(), nil
}

// TryPop removes and returns the oldest record without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.empty() {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// Empty reports whether no record is queued.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.empty()
}

// Len returns the number of queued records.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.tail - q.head + len(q.buf)) % len(q.buf)
}

// Cap returns the maximum number of queued records.
func (q *Queue[T]) Cap() int {
	return len(q.buf) - 1
}

// Dropped returns the number of records discarded by the policy.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close wakes all waiters. Queued records can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *Queue[T]) empty() bool {
	return q.head == q.tail
}

func (q *Queue[T]) full() bool {
	return (q.tail+1)%len(q.buf) == q.head
}

func (q *Queue[T]) take() T {
	v := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.notFull.Signal()
	return v
}

func (q *Queue[T]) drop(v T) {
	q.dropped++
	if q.onDrop != nil {
		q.onDrop(v)
	}
}

// wait blocks on cond until signalled or ctx is done. q.mu must be held.
func (q *Queue[T]) wait(ctx context.Context, cond *sync.Cond) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
	})
	cond.Wait()
	stop()
	return ctx.Err()
}
