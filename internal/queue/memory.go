package queue

import (
	"context"
	"sync"
)

// MemoryQueue is a buffered in-process queue for tests and single-process
// setups. It trades the durability of the Redis list for zero dependencies.
type MemoryQueue struct {
	jobs   chan Job
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates a queue with the given buffer size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return Job{}, ErrQueueClosed
		}
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close stops the queue; pending jobs remain consumable until drained.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

var _ Queue = (*MemoryQueue)(nil)
