package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

func TestQueuePriorityOrdering(t *testing.T) {
	q := NewQueue(16)
	ctx := context.Background()

	require.NoError(t, q.Push(newPending(t, "low", 1)))
	require.NoError(t, q.Push(newPending(t, "high", 9)))
	require.NoError(t, q.Push(newPending(t, "mid", 5)))

	for _, want := range []string{"high", "mid", "low"} {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got.ID)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue(16)
	ctx := context.Background()

	require.NoError(t, q.Push(newPending(t, "first", 5)))
	require.NoError(t, q.Push(newPending(t, "second", 5)))
	require.NoError(t, q.Push(newPending(t, "third", 5)))

	for _, want := range []string{"first", "second", "third"} {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got.ID)
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(16)
	ctx := context.Background()

	done := make(chan *Task, 1)
	go func() {
		popped, err := q.Pop(ctx)
		if err == nil {
			done <- popped
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(newPending(t, "late", 5)))

	select {
	case popped := <-done:
		assert.Equal(t, "late", popped.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestQueuePopContextCancel(t *testing.T) {
	q := NewQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQueueSkipsCancelledTasks(t *testing.T) {
	q := NewQueue(16)
	ctx := context.Background()

	doomed := newPending(t, "doomed", 9)
	require.NoError(t, q.Push(doomed))
	require.NoError(t, q.Push(newPending(t, "survivor", 1)))
	require.NoError(t, doomed.Cancel())

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "survivor", got.ID, "cancelled tasks are skipped at pop time")
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(16)
	require.NoError(t, q.Push(newPending(t, "queued", 5)))

	q.Close()
	assert.True(t, q.Closed())

	err := q.Push(newPending(t, "rejected", 5))
	assert.True(t, errors.Is(err, loomerrors.ErrQueueClosed))

	// Already queued tasks drain before the closed error surfaces.
	got, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", got.ID)

	_, err = q.Pop(context.Background())
	assert.True(t, errors.Is(err, loomerrors.ErrQueueClosed))

	// Idempotent.
	q.Close()
}

func TestQueueConcurrentPushClose(t *testing.T) {
	// Pushers racing Close must either enqueue or get ErrQueueClosed;
	// the signal channel close may never panic a concurrent Push.
	for range 500 {
		q := NewQueue(4)

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := range 8 {
					err := q.Push(newPending(t, fmt.Sprintf("t-%d-%d", n, j), 5))
					if err != nil {
						assert.True(t, errors.Is(err, loomerrors.ErrQueueClosed))
						return
					}
				}
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Close()
		}()
		wg.Wait()

		assert.True(t, errors.Is(q.Push(newPending(t, "late", 5)), loomerrors.ErrQueueClosed))
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue(16)
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Push(newPending(t, "a", 5)))
	require.NoError(t, q.Push(newPending(t, "b", 5)))
	assert.Equal(t, 2, q.Len())
}
