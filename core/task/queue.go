package task

import (
	"container/heap"
	"context"
	"sync"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

// DefaultQueueCapacity bounds the pending-task signal buffer.
const DefaultQueueCapacity = 1024

// Queue is a thread-safe priority queue of pending tasks. Higher priority
// dequeues first; equal priority preserves submission order. Cancelled tasks
// are skipped lazily at pop time.
type Queue struct {
	mu      sync.Mutex
	heap    taskHeap
	nextSeq uint64
	closed  bool

	// ready carries one token per push so poppers can block without
	// spinning. Spurious wakeups (cancelled tasks) re-check the heap.
	ready chan struct{}
}

// NewQueue creates a queue with the given signal capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		heap:  make(taskHeap, 0, 16),
		ready: make(chan struct{}, capacity),
	}
}

// Push enqueues a pending task. Fails with ErrQueueClosed after Close.
func (q *Queue) Push(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return loomerrors.ErrQueueClosed
	}
	t.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, t)

	// The signal send stays under the mutex so Close cannot close the
	// channel between the closed check and the send.
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until a pending task is available, the context is done, or the
// queue is closed and drained. Tasks cancelled while queued are skipped.
func (q *Queue) Pop(ctx context.Context) (*Task, error) {
	for {
		if t, err := q.tryPop(); t != nil || err != nil {
			return t, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-q.ready:
			if !ok {
				// Closed; drain whatever is left.
				if t, err := q.tryPop(); t != nil || err != nil {
					return t, err
				}
				return nil, loomerrors.ErrQueueClosed
			}
		}
	}
}

// tryPop returns the next pending task, nil if the heap is momentarily
// empty, or ErrQueueClosed once closed and drained.
func (q *Queue) tryPop() (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() > 0 {
		t := heap.Pop(&q.heap).(*Task)
		if t.Status() == StatusPending {
			return t, nil
		}
		// Cancelled while queued; drop it.
	}
	if q.closed {
		return nil, loomerrors.ErrQueueClosed
	}
	return nil, nil
}

// Len reports the number of queued tasks, including not-yet-skipped
// cancelled ones.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Close rejects further pushes and wakes all blocked poppers. Idempotent.
// The channel close happens under the mutex, serialized with Push's send.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

// Closed reports whether the queue has been shut down.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// taskHeap orders by priority desc, then submission order asc.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
