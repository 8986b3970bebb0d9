// Package report serves stored reports to their owners and exports them.
package report

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/metrics"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

// Service handles report operations
type Service struct {
	store   storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new report service
func NewService(store storage.Storage, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, metrics: m, logger: logger}
}

// List returns the user's reports, newest first
func (s *Service) List(ctx context.Context, userID int) ([]*models.Report, error) {
	reports, err := s.store.GetReportsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// Get returns a report owned by userID
func (s *Service) Get(ctx context.Context, userID, id int) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if r == nil {
		return nil, models.ErrNotFound
	}
	if r.UserID != userID {
		return nil, models.ErrForbidden
	}
	return r, nil
}

// Create stores a report for a research owned by userID. A missing research
// is reported as forbidden, the same as someone else's.
func (s *Service) Create(ctx context.Context, userID int, req models.CreateReportRequest) (*models.Report, error) {
	research, err := s.store.GetResearch(ctx, req.ResearchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load research: %w", err)
	}
	if research == nil || research.UserID != userID {
		return nil, models.ErrForbidden
	}

	created, err := s.store.CreateReport(ctx, &models.Report{
		UserID:     userID,
		ResearchID: research.ID,
		Content:    req.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	s.metrics.RecordReportCreated("api")
	return created, nil
}

// Export renders a report owned by userID as an XLSX workbook and returns it
// with a suggested file name
func (s *Service) Export(ctx context.Context, userID, id int) (*bytes.Buffer, string, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	title := fmt.Sprintf("report-%d", r.ID)
	research, err := s.store.GetResearch(ctx, r.ResearchID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load research: %w", err)
	}

	buf, err := BuildWorkbook(r, research)
	if err != nil {
		s.logger.Error("report export failed", zap.Int("report_id", r.ID), zap.Error(err))
		return nil, "", err
	}
	s.metrics.RecordReportExport()
	return buf, title + ".xlsx", nil
}
