package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/metrics"
)

// WorkerPool pulls jobs off a Queue and runs them through a Processor
type WorkerPool struct {
	queue     Queue
	processor Processor
	size      int
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a pool of size workers. jobTimeout bounds a single
// job; zero leaves it unbounded.
func NewWorkerPool(queue Queue, processor Processor, size int, jobTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		queue:     queue,
		processor: processor,
		size:      size,
		timeout:   jobTimeout,
		metrics:   m,
		logger:    logger,
	}
}

// Start launches the workers. They run until Stop or until ctx is done.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.size))
}

// Stop cancels the workers and waits for in-flight jobs to return
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) run(ctx context.Context, worker int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", worker))

	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if depth, err := p.queue.Len(ctx); err == nil {
			p.metrics.SetQueueDepth(depth)
		}
		p.handle(ctx, log, job)
	}
}

func (p *WorkerPool) handle(ctx context.Context, log *zap.Logger, job *Job) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log = log.With(
		zap.String("job_id", job.ID.String()),
		zap.Int("research_id", job.ResearchID),
		zap.Int("attempt", job.Attempt))

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r))
			p.processor.MarkFailed(ctx, job.ResearchID, fmt.Sprintf("panic: %v", r))
		}
	}()

	outcome, err := p.processor.Process(ctx, job.ResearchID)
	if err != nil {
		log.Error("job failed", zap.String("outcome", outcome), zap.Error(err))
		return
	}
	log.Info("job done", zap.String("outcome", outcome))
}
