// Package stream hands records from a producer goroutine to a consumer
// through a bounded queue.
//
// The producer blocks while the queue is full and the consumer blocks while
// it is empty. Either side can stop the exchange: the producer by finishing
// (with or without an error), the consumer by closing. A closed consumer
// makes every pending and later Put fail with ErrClosed, so the producer
// exits instead of leaking.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/metrics"
)

// ErrClosed is returned by Put once the consumer has closed the queue.
var ErrClosed = errors.New(errors.ErrorTypeCanceled, "stream closed by consumer")

// DefaultCapacity is used when a capacity below one is requested.
const DefaultCapacity = 1000

// Queue is a bounded single-producer single-consumer queue.
type Queue[T any] struct {
	name string
	ch   chan T

	done      chan struct{}
	closeOnce sync.Once

	finishOnce sync.Once
	err        error

	blocked atomic.Int64
}

// NewQueue creates a queue holding at most capacity items. name labels the
// depth gauge.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		name: name,
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Put appends v, blocking while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- v:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return nil
	default:
	}

	q.blocked.Add(1)
	metrics.ProducerBlocked.Inc()
	select {
	case q.ch <- v:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish marks the end of production. err, when non-nil, is reported to the
// consumer after the queued items. Only the producer may call Finish.
func (q *Queue[T]) Finish(err error) {
	q.finishOnce.Do(func() {
		q.err = err
		close(q.ch)
	})
}

// Next returns the next item. ok is false once the queue is drained after
// Finish, after Close, or when ctx ends; err then carries the producer's
// error or the context error.
func (q *Queue[T]) Next(ctx context.Context) (v T, ok bool, err error) {
	select {
	case <-q.done:
		return v, false, nil
	default:
	}

	select {
	case v, ok = <-q.ch:
		if !ok {
			return v, false, q.err
		}
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return v, true, nil
	case <-q.done:
		return v, false, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}

// Close stops consumption. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Blocked returns how many times Put found the queue full.
func (q *Queue[T]) Blocked() int64 { return q.blocked.Load() }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
