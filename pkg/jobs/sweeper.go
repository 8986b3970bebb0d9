package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// DefaultSweepSchedule runs the sweep once a minute
const DefaultSweepSchedule = "@every 1m"

// PendingLister is the slice of storage the sweeper needs
type PendingLister interface {
	GetResearchesByStatus(ctx context.Context, status models.ResearchStatus) ([]*models.Research, error)
}

// InFlight reports researches this process is already working on
type InFlight interface {
	Busy(researchID int) bool
}

// Sweeper re-enqueues auto-find researches left pending for longer than
// staleAfter, such as jobs lost by an in-memory queue on restart
type Sweeper struct {
	cron       *cron.Cron
	store      PendingLister
	queue      Enqueuer
	staleAfter time.Duration
	inFlight   InFlight
	now        func() time.Time
	logger     *zap.Logger

	mu         sync.Mutex
	lastQueued map[int]time.Time
}

// NewSweeper creates a sweeper; call Schedule then Start
func NewSweeper(store PendingLister, queue Enqueuer, staleAfter time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cron:       cron.New(),
		store:      store,
		queue:      queue,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
		lastQueued: make(map[int]time.Time),
	}
}

// WithInFlight skips researches that f reports as running
func (s *Sweeper) WithInFlight(f InFlight) *Sweeper {
	s.inFlight = f
	return s
}

// Schedule registers the sweep on spec, a robfig/cron expression
func (s *Sweeper) Schedule(spec string) error {
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info("stale researches re-enqueued", zap.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Sweeper) Start() {
	s.logger.Info("starting sweeper")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// Sweep enqueues every stale pending auto-find research and returns how many.
// A research that is running, or that this sweeper queued less than
// staleAfter ago, is left alone.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.store.GetResearchesByStatus(ctx, models.ResearchPending)
	if err != nil {
		return 0, fmt.Errorf("list pending researches: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.staleAfter)
	stillPending := make(map[int]bool, len(pending))
	count := 0
	for _, r := range pending {
		stillPending[r.ID] = true
		if !r.CreatedAt.Before(cutoff) || !r.AutoFindCompetitors {
			continue
		}
		if s.inFlight != nil && s.inFlight.Busy(r.ID) {
			continue
		}
		if last, ok := s.lastQueued[r.ID]; ok && last.After(cutoff) {
			continue
		}
		job := NewJob(r.ID)
		job.Attempt = 2
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return count, fmt.Errorf("enqueue research %d: %w", r.ID, err)
		}
		s.lastQueued[r.ID] = now
		count++
	}

	for id := range s.lastQueued {
		if !stillPending[id] {
			delete(s.lastQueued, id)
		}
	}
	return count, nil
}
