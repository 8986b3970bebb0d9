package jobs

import (
	"context"
	"sync"
)

// DefaultMemoryQueueSize bounds the in-process queue
const DefaultMemoryQueueSize = 1024

// MemoryQueue is a buffered channel. Jobs do not survive a restart; the
// Sweeper re-enqueues whatever was lost.
type MemoryQueue struct {
	jobs chan Job
	done chan struct{}
	once sync.Once
}

// NewMemoryQueue creates a queue holding up to size jobs
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = DefaultMemoryQueueSize
	}
	return &MemoryQueue{
		jobs: make(chan Job, size),
		done: make(chan struct{}),
	}
}

var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-q.jobs:
		return &job, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
