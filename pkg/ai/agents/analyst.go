package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/ai/llm"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

// DiscoveryCount is how many competitors discovery asks for
const DiscoveryCount = 5

// Fallback conclusions used when the model cannot produce a report
var (
	FallbackFindings        = []string{"Analysis could not be completed successfully"}
	FallbackOpportunities   = []string{"Try again later or contact support for assistance"}
	FallbackRecommendations = []string{"Review input data and try again"}
)

// DiscoveryResult is the outcome of competitor discovery. When Degraded is
// set, Competitors holds placeholder names and Reason explains why.
type DiscoveryResult struct {
	Competitors []string
	Degraded    bool
	Reason      string
}

// ReportResult is the outcome of report generation. When Degraded is set,
// Content is a minimal renderable report and Reason explains why.
type ReportResult struct {
	Content  models.ReportContent
	Degraded bool
	Reason   string
}

// Observer receives one call per model request
type Observer func(operation string, degraded bool, duration time.Duration)

// CompetitorAnalyst turns a research into competitors and a report
type CompetitorAnalyst struct {
	llm      llm.LLMClient
	timeout  time.Duration
	logger   *zap.Logger
	observer Observer
}

// NewCompetitorAnalyst creates a new analyst. timeout bounds each model call;
// zero means no bound beyond the caller's context.
func NewCompetitorAnalyst(client llm.LLMClient, timeout time.Duration, logger *zap.Logger) *CompetitorAnalyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetitorAnalyst{
		llm:     client,
		timeout: timeout,
		logger:  logger,
	}
}

// WithObserver registers a hook called after every model request
func (a *CompetitorAnalyst) WithObserver(o Observer) *CompetitorAnalyst {
	a.observer = o
	return a
}

// DiscoverCompetitors asks the model for DiscoveryCount competitor names.
// It never fails: on any error it returns placeholder names marked degraded.
func (a *CompetitorAnalyst) DiscoverCompetitors(ctx context.Context, research *models.Research) DiscoveryResult {
	start := time.Now()
	names, err := a.discover(ctx, research)
	a.observe("discover", err != nil, time.Since(start))

	if err != nil {
		a.logger.Warn("competitor discovery degraded",
			zap.Int("research_id", research.ID),
			zap.Error(err))
		return DiscoveryResult{
			Competitors: PlaceholderCompetitors(),
			Degraded:    true,
			Reason:      err.Error(),
		}
	}

	a.logger.Info("competitors discovered",
		zap.Int("research_id", research.ID),
		zap.Strings("competitors", names))
	return DiscoveryResult{Competitors: names}
}

func (a *CompetitorAnalyst) discover(ctx context.Context, research *models.Research) ([]string, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("no language model configured")
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	raw, err := a.llm.CompleteJSON(ctx, llm.BuildDiscoveryPrompt(brief(research, nil), DiscoveryCount), llm.DiscoverySystemPrompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Competitors json.RawMessage `json:"competitors"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse discovery response: %w", err)
	}

	// a competitors field of the wrong shape counts as an empty answer
	var list []string
	_ = json.Unmarshal(parsed.Competitors, &list)

	names := make([]string, 0, len(list))
	for _, name := range list {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("discovery response has no competitors")
	}
	if len(names) > DiscoveryCount {
		names = names[:DiscoveryCount]
	}
	return names, nil
}

// GenerateReport asks the model for the full report. An empty competitors
// list falls back to the research's manual list. It never fails: on any
// error it returns a minimal report marked degraded.
func (a *CompetitorAnalyst) GenerateReport(ctx context.Context, research *models.Research, competitors []string) ReportResult {
	if len(competitors) == 0 {
		competitors = research.ManualCompetitors()
	}

	start := time.Now()
	content, err := a.generate(ctx, research, competitors)
	a.observe("generate", err != nil, time.Since(start))

	if err != nil {
		a.logger.Warn("report generation degraded",
			zap.Int("research_id", research.ID),
			zap.Error(err))
		return ReportResult{
			Content:  FallbackReport(competitors),
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	if !content.Conclusions.Complete() {
		fillConclusions(&content.Conclusions)
		return ReportResult{
			Content:  content,
			Degraded: true,
			Reason:   "report response has incomplete conclusions",
		}
	}
	return ReportResult{Content: content}
}

func (a *CompetitorAnalyst) generate(ctx context.Context, research *models.Research, competitors []string) (models.ReportContent, error) {
	var content models.ReportContent
	if a.llm == nil {
		return content, fmt.Errorf("no language model configured")
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	raw, err := a.llm.CompleteJSON(ctx, llm.BuildReportPrompt(brief(research, competitors)), llm.ReportSystemPrompt)
	if err != nil {
		return content, err
	}
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return content, fmt.Errorf("parse report response: %w", err)
	}

	if len(content.Competitors) == 0 {
		content.Competitors = profiles(competitors)
	}
	if !research.IncludeGoogleAnalytics {
		content.GoogleAnalytics = nil
	}
	if !research.IncludeGoogleTrends {
		content.GoogleTrends = nil
	}
	return content, nil
}

func (a *CompetitorAnalyst) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *CompetitorAnalyst) observe(op string, degraded bool, d time.Duration) {
	if a.observer != nil {
		a.observer(op, degraded, d)
	}
}

// PlaceholderCompetitors returns "Competitor 1".."Competitor 5"
func PlaceholderCompetitors() []string {
	names := make([]string, DiscoveryCount)
	for i := range names {
		names[i] = fmt.Sprintf("Competitor %d", i+1)
	}
	return names
}

// FallbackReport is the minimal report used when generation fails
func FallbackReport(competitors []string) models.ReportContent {
	content := models.ReportContent{Competitors: profiles(competitors)}
	fillConclusions(&content.Conclusions)
	return content
}

func fillConclusions(c *models.Conclusions) {
	if len(c.Findings) == 0 {
		c.Findings = append([]string(nil), FallbackFindings...)
	}
	if len(c.Opportunities) == 0 {
		c.Opportunities = append([]string(nil), FallbackOpportunities...)
	}
	if len(c.Recommendations) == 0 {
		c.Recommendations = append([]string(nil), FallbackRecommendations...)
	}
}

func profiles(names []string) []models.CompetitorProfile {
	out := make([]models.CompetitorProfile, 0, len(names))
	for _, name := range names {
		out = append(out, models.CompetitorProfile{Name: name})
	}
	return out
}

func brief(r *models.Research, competitors []string) llm.ResearchBrief {
	return llm.ResearchBrief{
		Product:          r.Product,
		Sector:           r.ProductCategory,
		Location:         r.Location(),
		SalesChannels:    r.SalesChannels,
		Competitors:      competitors,
		Aspects:          r.AspectsToAnalyze,
		IncludeAnalytics: r.IncludeGoogleAnalytics,
		IncludeTrends:    r.IncludeGoogleTrends,
	}
}
