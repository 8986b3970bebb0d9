// Package quota holds the subscription tier table and the monthly research
// quota check applied before a research is created.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// ErrQuotaExceeded is returned when a user has used up the monthly researches of their tier
var ErrQuotaExceeded = errors.New("monthly research quota exceeded")

// Unlimited marks a tier without a monthly cap
const Unlimited = -1

// TierLimits describes what a subscription tier includes
type TierLimits struct {
	Name               string
	ResearchesPerMonth int
	Features           []string
}

var tiers = map[models.SubscriptionTier]TierLimits{
	models.TierFree: {
		Name:               "Free",
		ResearchesPerMonth: 5,
		Features:           []string{"basic_analysis", "simple_reports", "email_support"},
	},
	models.TierIntermediate: {
		Name:               "Intermediate",
		ResearchesPerMonth: 30,
		Features:           []string{"advanced_analysis", "detailed_reports", "pdf_export", "priority_support"},
	},
	models.TierAdvanced: {
		Name:               "Advanced",
		ResearchesPerMonth: Unlimited,
		Features:           []string{"premium_analysis", "customized_reports", "integrations", "team_management", "24_7_support"},
	},
}

// LimitsFor returns the limits of tier. Unknown tiers get the free limits.
func LimitsFor(tier models.SubscriptionTier) TierLimits {
	if l, ok := tiers[tier]; ok {
		return l
	}
	return tiers[models.TierFree]
}

// Pricing lists every tier in ascending order
func Pricing() []models.PricingTier {
	order := []models.SubscriptionTier{models.TierFree, models.TierIntermediate, models.TierAdvanced}
	out := make([]models.PricingTier, 0, len(order))
	for _, tier := range order {
		l := tiers[tier]
		out = append(out, models.PricingTier{
			Tier:               tier,
			Name:               l.Name,
			ResearchesPerMonth: l.ResearchesPerMonth,
			Unlimited:          l.ResearchesPerMonth == Unlimited,
			Features:           append([]string(nil), l.Features...),
		})
	}
	return out
}

// Checker decides whether a user may create another research
type Checker interface {
	CheckResearchQuota(ctx context.Context, user *models.User) error
	Usage(ctx context.Context, user *models.User) (*models.UsageResponse, error)
}

// ResearchLister is the slice of storage the policy needs
type ResearchLister interface {
	GetResearchesByUserID(ctx context.Context, userID int) ([]*models.Research, error)
}

// TierPolicy counts researches created in the current UTC calendar month
type TierPolicy struct {
	store   ResearchLister
	enforce bool
	now     func() time.Time
}

// NewTierPolicy creates a policy. With enforce off, CheckResearchQuota
// always allows and Usage still reports consumption.
func NewTierPolicy(store ResearchLister, enforce bool) *TierPolicy {
	return &TierPolicy{store: store, enforce: enforce, now: time.Now}
}

var _ Checker = (*TierPolicy)(nil)

// CheckResearchQuota returns ErrQuotaExceeded when the user is at the limit
func (p *TierPolicy) CheckResearchQuota(ctx context.Context, user *models.User) error {
	if !p.enforce {
		return nil
	}
	usage, err := p.Usage(ctx, user)
	if err != nil {
		return err
	}
	if !usage.Unlimited && usage.Used >= usage.Limit {
		return fmt.Errorf("%w: %d of %d used on tier %s", ErrQuotaExceeded, usage.Used, usage.Limit, usage.Tier)
	}
	return nil
}

// Usage reports the user's consumption for the current month
func (p *TierPolicy) Usage(ctx context.Context, user *models.User) (*models.UsageResponse, error) {
	limits := LimitsFor(user.SubscriptionTier)

	researches, err := p.store.GetResearchesByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count researches: %w", err)
	}

	start := monthStart(p.now())
	used := 0
	for _, r := range researches {
		// listing is newest first
		if r.CreatedAt.Before(start) {
			break
		}
		used++
	}

	usage := &models.UsageResponse{
		Tier:      user.SubscriptionTier,
		Used:      used,
		Limit:     limits.ResearchesPerMonth,
		Unlimited: limits.ResearchesPerMonth == Unlimited,
		Enforced:  p.enforce,
	}
	if !usage.Unlimited {
		usage.Remaining = max(usage.Limit-used, 0)
	}
	return usage, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
