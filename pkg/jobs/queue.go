// Package jobs runs report generation outside the request path. A create
// call enqueues a Job; workers pull jobs and hand them to the Pipeline.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue and Dequeue after Close
var ErrQueueClosed = errors.New("job queue closed")

// Job asks the pipeline to generate the report of one research
type Job struct {
	ID         uuid.UUID `json:"id"`
	ResearchID int       `json:"researchId"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// NewJob creates a first-attempt job for researchID
func NewJob(researchID int) Job {
	return Job{
		ID:         uuid.New(),
		ResearchID: researchID,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue carries jobs from producers to the worker pool
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available, ctx is done or the queue is closed
	Dequeue(ctx context.Context) (*Job, error)
	Len(ctx context.Context) (int64, error)
	Close() error
}

// Enqueuer is the producer half of Queue
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}
