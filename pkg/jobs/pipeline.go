package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/ai/agents"
	"github.com/jordanlanch/rivalscope/pkg/cache"
	"github.com/jordanlanch/rivalscope/pkg/metrics"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

// Pipeline outcomes, as recorded in metrics. An interrupted research stays
// pending for the sweeper.
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeSkipped     = "skipped"
	OutcomeInterrupted = "interrupted"
)

// claimTTL bounds how long one worker owns a research
const claimTTL = 10 * time.Minute

// Analyst is the report-generation collaborator
type Analyst interface {
	DiscoverCompetitors(ctx context.Context, research *models.Research) agents.DiscoveryResult
	GenerateReport(ctx context.Context, research *models.Research, competitors []string) agents.ReportResult
}

// ReportNotifier is told when a report is ready
type ReportNotifier interface {
	SendReportReadyEmail(toEmail, toName, researchTitle string, reportID int) error
}

// Processor handles one research job
type Processor interface {
	Process(ctx context.Context, researchID int) (string, error)
	MarkFailed(ctx context.Context, researchID int, reason string)
}

// Pipeline runs discovery and report generation for auto-find researches
type Pipeline struct {
	store    storage.Storage
	analyst  Analyst
	metrics  *metrics.Metrics
	notifier ReportNotifier
	claims   *cache.Client
	logger   *zap.Logger

	mu      sync.Mutex
	running map[int]struct{}
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(store storage.Storage, analyst Analyst, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:   store,
		analyst: analyst,
		metrics: m,
		logger:  logger,
		running: make(map[int]struct{}),
	}
}

// WithNotifier sends a "report ready" email on completion
func (p *Pipeline) WithNotifier(n ReportNotifier) *Pipeline {
	p.notifier = n
	return p
}

// WithClaims makes workers on different instances skip a research another
// worker is already processing
func (p *Pipeline) WithClaims(c *cache.Client) *Pipeline {
	p.claims = c
	return p
}

var _ Processor = (*Pipeline)(nil)

// Process generates the report of researchID and returns the outcome.
// A missing, manual or non-pending research is skipped.
func (p *Pipeline) Process(ctx context.Context, researchID int) (string, error) {
	start := time.Now()
	outcome, err := p.process(ctx, researchID)

	// a cancelled job was stopped, not refused by the model
	if outcome == OutcomeFailed && errors.Is(ctx.Err(), context.Canceled) {
		p.logger.Info("research interrupted, left pending", zap.Int("research_id", researchID))
		outcome, err = OutcomeInterrupted, nil
	}
	p.metrics.RecordPipelineRun(outcome, time.Since(start))

	if outcome == OutcomeFailed {
		reason := "report generation degraded"
		if err != nil {
			reason = err.Error()
		}
		p.MarkFailed(ctx, researchID, reason)
	}
	return outcome, err
}

// Busy reports whether this process is currently running researchID
func (p *Pipeline) Busy(researchID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[researchID]
	return ok
}

func (p *Pipeline) process(ctx context.Context, researchID int) (string, error) {
	claimed, release := p.claim(ctx, researchID)
	if !claimed {
		p.logger.Info("research already claimed", zap.Int("research_id", researchID))
		return OutcomeSkipped, nil
	}
	defer release()

	research, err := p.store.GetResearch(ctx, researchID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load research %d: %w", researchID, err)
	}
	if research == nil || !research.AutoFindCompetitors || research.Status != models.ResearchPending {
		p.logger.Debug("research skipped", zap.Int("research_id", researchID))
		return OutcomeSkipped, nil
	}

	// a redelivered job whose report was already stored only needs the status flip
	existing, err := p.store.GetReportByResearchID(ctx, researchID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load report of research %d: %w", researchID, err)
	}
	if existing != nil {
		if err := p.setStatus(ctx, researchID, models.ResearchCompleted); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeCompleted, nil
	}

	discovery := p.analyst.DiscoverCompetitors(ctx, research)
	if discovery.Degraded {
		p.logger.Warn("discovery degraded",
			zap.Int("research_id", researchID),
			zap.String("reason", discovery.Reason))
		return OutcomeFailed, nil
	}

	joined := strings.Join(discovery.Competitors, ", ")
	research, err = p.store.UpdateResearch(ctx, researchID, models.ResearchPatch{Competitors: &joined})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("store competitors: %w", err)
	}
	if research == nil {
		// deleted while discovery ran
		return OutcomeSkipped, nil
	}

	generated := p.analyst.GenerateReport(ctx, research, discovery.Competitors)
	if generated.Degraded {
		p.logger.Warn("report generation degraded",
			zap.Int("research_id", researchID),
			zap.String("reason", generated.Reason))
		return OutcomeFailed, nil
	}

	current, err := p.store.GetResearch(ctx, researchID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load research %d: %w", researchID, err)
	}
	if current == nil {
		return OutcomeSkipped, nil
	}

	report, err := p.store.CreateReport(ctx, &models.Report{
		UserID:     research.UserID,
		ResearchID: research.ID,
		Content:    generated.Content,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("store report: %w", err)
	}

	if err := p.setStatus(ctx, researchID, models.ResearchCompleted); err != nil {
		return OutcomeFailed, err
	}

	// a delete that ran while the report was written leaves it orphaned
	current, err = p.store.GetResearch(ctx, researchID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load research %d: %w", researchID, err)
	}
	if current == nil {
		if _, err := p.store.DeleteReport(ctx, report.ID); err != nil {
			return OutcomeFailed, fmt.Errorf("drop orphaned report %d: %w", report.ID, err)
		}
		return OutcomeSkipped, nil
	}
	p.metrics.RecordReportCreated("pipeline")

	p.logger.Info("report generated",
		zap.Int("research_id", researchID),
		zap.Int("report_id", report.ID),
		zap.Int("competitors", len(discovery.Competitors)))
	p.notify(ctx, research, report)
	return OutcomeCompleted, nil
}

// MarkFailed moves a pending research to failed and reports the cause
func (p *Pipeline) MarkFailed(ctx context.Context, researchID int, reason string) {
	// the caller's context may be the one that expired
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.setStatus(ctx, researchID, models.ResearchFailed); err != nil {
		p.logger.Error("failed to mark research failed",
			zap.Int("research_id", researchID),
			zap.Error(err))
	}

	p.logger.Warn("research failed",
		zap.Int("research_id", researchID),
		zap.String("reason", reason))

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("research_id", strconv.Itoa(researchID))
		scope.SetTag("component", "pipeline")
	})
	hub.CaptureException(errors.New(reason))
}

// setStatus applies a forward transition; anything else is left alone
func (p *Pipeline) setStatus(ctx context.Context, researchID int, next models.ResearchStatus) error {
	current, err := p.store.GetResearch(ctx, researchID)
	if err != nil {
		return fmt.Errorf("load research %d: %w", researchID, err)
	}
	if current == nil || !current.Status.CanTransitionTo(next) {
		return nil
	}
	if _, err := p.store.UpdateResearch(ctx, researchID, models.ResearchPatch{Status: &next}); err != nil {
		return fmt.Errorf("set research %d %s: %w", researchID, next, err)
	}
	return nil
}

// claim takes the in-process lock on researchID and, with Redis, the
// cross-instance one
func (p *Pipeline) claim(ctx context.Context, researchID int) (bool, func()) {
	p.mu.Lock()
	if _, ok := p.running[researchID]; ok {
		p.mu.Unlock()
		return false, func() {}
	}
	p.running[researchID] = struct{}{}
	p.mu.Unlock()

	local := func() {
		p.mu.Lock()
		delete(p.running, researchID)
		p.mu.Unlock()
	}

	if p.claims == nil {
		return true, local
	}
	key := fmt.Sprintf("rivalscope:jobs:claim:%d", researchID)
	ok, err := p.claims.SetNX(ctx, key, time.Now().Unix(), claimTTL)
	if err != nil {
		// Redis down: the in-process lock still holds on this instance
		p.logger.Warn("failed to claim research", zap.Int("research_id", researchID), zap.Error(err))
		return true, local
	}
	if !ok {
		local()
		return false, func() {}
	}
	return true, func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.claims.Delete(releaseCtx, key)
		local()
	}
}

func (p *Pipeline) notify(ctx context.Context, research *models.Research, report *models.Report) {
	if p.notifier == nil {
		return
	}
	user, err := p.store.GetUser(ctx, research.UserID)
	if err != nil || user == nil {
		p.logger.Warn("report ready email skipped", zap.Int("research_id", research.ID), zap.Error(err))
		return
	}
	if err := p.notifier.SendReportReadyEmail(user.Email, user.FirstName, research.Title, report.ID); err != nil {
		p.logger.Warn("report ready email failed", zap.Int("research_id", research.ID), zap.Error(err))
	}
}
