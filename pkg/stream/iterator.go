package stream

import (
	"context"
	stderrors "errors"
	"iter"
	"sync"
)

// Producer pushes items through emit until done. emit fails once the
// consumer has gone away; the producer should then return that error.
type Producer[T any] func(ctx context.Context, emit func(T) error) error

// Iterator consumes items produced on a separate goroutine.
//
//	it := stream.Go(ctx, "orders", 100, produce)
//	defer it.Close()
//	for it.Next() {
//		use(it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	q      *Queue[T]
	exited chan struct{}

	cur T
	err error

	closeOnce sync.Once
}

// Go starts produce on a new goroutine and returns the consuming side.
func Go[T any](ctx context.Context, name string, capacity int, produce Producer[T]) *Iterator[T] {
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator[T]{
		ctx:    ctx,
		cancel: cancel,
		q:      NewQueue[T](name, capacity),
		exited: make(chan struct{}),
	}

	go func() {
		defer close(it.exited)
		err := produce(ctx, func(v T) error { return it.q.Put(ctx, v) })
		if stderrors.Is(err, ErrClosed) {
			err = nil
		}
		it.q.Finish(err)
	}()
	return it
}

// Next advances to the next item, reporting false at the end of the stream.
func (it *Iterator[T]) Next() bool {
	v, ok, err := it.q.Next(it.ctx)
	if !ok {
		var zero T
		it.cur = zero
		if err != nil && it.err == nil {
			it.err = err
		}
		return false
	}
	it.cur = v
	return true
}

// Value returns the current item.
func (it *Iterator[T]) Value() T { return it.cur }

// Err returns the error that ended the stream, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Blocked returns how many times the producer waited on a full queue.
func (it *Iterator[T]) Blocked() int64 { return it.q.Blocked() }

// Close stops the producer and waits for it to exit.
func (it *Iterator[T]) Close() {
	it.closeOnce.Do(func() {
		it.q.Close()
		it.cancel()
		<-it.exited
	})
}

// All yields every item and then, if the stream failed, one final error.
// Breaking out of the loop closes the iterator.
func (it *Iterator[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Value(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}
