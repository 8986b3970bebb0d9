// Package research owns the research lifecycle: creation under the tier
// quota, ownership-checked reads and writes, and handing auto-find
// researches to the job queue.
package research

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/jobs"
	"github.com/jordanlanch/rivalscope/pkg/metrics"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

// Service handles research operations
type Service struct {
	store   storage.Storage
	quota   quota.Checker
	queue   jobs.Enqueuer
	metrics *metrics.Metrics
	logger  *zap.Logger

	// serializes the quota check with the insert it guards
	mu sync.Mutex
}

// NewService creates a new research service. checker and queue may be nil;
// without a queue auto-find researches stay pending until the sweeper runs.
func NewService(store storage.Storage, checker quota.Checker, queue jobs.Enqueuer, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		quota:   checker,
		queue:   queue,
		metrics: m,
		logger:  logger,
	}
}

// Create stores a new pending research for user. Auto-find researches are
// enqueued for report generation and returned while still pending.
func (s *Service) Create(ctx context.Context, user *models.User, req models.CreateResearchRequest) (*models.Research, error) {
	created, err := s.createWithinQuota(ctx, user, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordResearchCreated(created.AutoFindCompetitors)

	if created.AutoFindCompetitors && s.queue != nil {
		job := jobs.NewJob(created.ID)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			// the research stays pending and the sweeper picks it up
			s.logger.Error("failed to enqueue research",
				zap.Int("research_id", created.ID),
				zap.Error(err))
		} else {
			s.logger.Info("research enqueued",
				zap.Int("research_id", created.ID),
				zap.String("job_id", job.ID.String()))
		}
	}

	return created, nil
}

func (s *Service) createWithinQuota(ctx context.Context, user *models.User, req models.CreateResearchRequest) (*models.Research, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota != nil {
		if err := s.quota.CheckResearchQuota(ctx, user); err != nil {
			s.metrics.RecordQuotaRejection(string(user.SubscriptionTier))
			return nil, err
		}
	}

	created, err := s.store.CreateResearch(ctx, req.ToResearch(user.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create research: %w", err)
	}
	return created, nil
}

// List returns the user's researches, newest first
func (s *Service) List(ctx context.Context, userID int) ([]*models.Research, error) {
	researches, err := s.store.GetResearchesByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list researches: %w", err)
	}
	return researches, nil
}

// Get returns a research owned by userID
func (s *Service) Get(ctx context.Context, userID, id int) (*models.Research, error) {
	r, err := s.store.GetResearch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load research: %w", err)
	}
	if r == nil {
		return nil, models.ErrNotFound
	}
	if r.UserID != userID {
		return nil, models.ErrForbidden
	}
	return r, nil
}

// Update merges the supplied fields into a research owned by userID
func (s *Service) Update(ctx context.Context, userID, id int, req models.UpdateResearchRequest) (*models.Research, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateResearch(ctx, id, req.ToPatch())
	if err != nil {
		return nil, fmt.Errorf("failed to update research: %w", err)
	}
	if updated == nil {
		return nil, models.ErrNotFound
	}
	return updated, nil
}

// Delete removes a research owned by userID together with its reports
func (s *Service) Delete(ctx context.Context, userID, id int) error {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	reports, err := s.store.GetReportsByUserID(ctx, r.UserID)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	for _, report := range reports {
		if report.ResearchID != id {
			continue
		}
		if _, err := s.store.DeleteReport(ctx, report.ID); err != nil {
			return fmt.Errorf("failed to delete report %d: %w", report.ID, err)
		}
	}

	existed, err := s.store.DeleteResearch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete research: %w", err)
	}
	if !existed {
		return models.ErrNotFound
	}
	return nil
}

// GetReport returns the report generated for a research owned by userID
func (s *Service) GetReport(ctx context.Context, userID, id int) (*models.Report, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	report, err := s.store.GetReportByResearchID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, models.ErrNotFound
	}
	return report, nil
}
