package stream

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n int) Producer[int] {
	return func(ctx context.Context, emit func(int) error) error {
		for i := 0; i < n; i++ {
			if err := emit(i); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestIteratorKeepsOrderAndBlocksProducer(t *testing.T) {
	it := Go(context.Background(), "test", 4, counter(200))
	defer it.Close()

	time.Sleep(50 * time.Millisecond)

	var got []int
	for it.Next() {
		got = append(got, it.Value())
	}
	require.NoError(t, it.Err())

	require.Len(t, got, 200)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.GreaterOrEqual(t, it.Blocked(), int64(1))
}

func TestProducerErrorFollowsItems(t *testing.T) {
	boom := stderrors.New("boom")
	it := Go(context.Background(), "test", 1, func(ctx context.Context, emit func(string) error) error {
		if err := emit("a"); err != nil {
			return err
		}
		if err := emit("b"); err != nil {
			return err
		}
		return boom
	})
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, it.Value())
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.ErrorIs(t, it.Err(), boom)
}

func TestCloseStopsProducer(t *testing.T) {
	stopped := make(chan error, 1)
	it := Go(context.Background(), "test", 2, func(ctx context.Context, emit func(int) error) error {
		for i := 0; ; i++ {
			if err := emit(i); err != nil {
				stopped <- err
				return err
			}
		}
	})

	for i := 0; i < 3; i++ {
		require.True(t, it.Next())
		assert.Equal(t, i, it.Value())
	}
	it.Close()

	select {
	case err := <-stopped:
		assert.Error(t, err)
	default:
		t.Fatal("producer still running after Close")
	}
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	it.Close()
}

func TestParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := Go(ctx, "test", 1, func(ctx context.Context, emit func(int) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
	defer it.Close()

	cancel()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestAllYieldsErrorLast(t *testing.T) {
	boom := stderrors.New("boom")
	it := Go(context.Background(), "test", 8, func(ctx context.Context, emit func(int) error) error {
		_ = emit(1)
		return boom
	})

	var vals []int
	var errs []error
	for v, err := range it.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		vals = append(vals, v)
	}
	assert.Equal(t, []int{1}, vals)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestAllBreakCloses(t *testing.T) {
	it := Go(context.Background(), "test", 1, counter(1000))
	n := 0
	for range it.All() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
	assert.False(t, it.Next())
}

func TestQueueDirect(t *testing.T) {
	q := NewQueue[int]("test", 0)
	assert.Equal(t, DefaultCapacity, q.Cap())

	ctx := context.Background()
	require.NoError(t, q.Put(ctx, 1))
	assert.Equal(t, 1, q.Len())
	q.Finish(nil)

	v, ok, err := q.Next(ctx)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	_, ok, err = q.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)

	closed := NewQueue[int]("test", 1)
	closed.Close()
	assert.ErrorIs(t, closed.Put(ctx, 1), ErrClosed)
}
