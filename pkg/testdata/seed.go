package testdata

import (
	"context"
	"fmt"

	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

// SeedConfig sizes a demo dataset
type SeedConfig struct {
	Users                int
	ResearchesPerUser    int
	PendingPerUser       int
	FailedPerUser        int
	Seed                 int64
	IncludeAdvancedUsers bool
}

// SeedResult counts what Seed created
type SeedResult struct {
	Users      []*models.User
	Researches int
	Reports    int
}

// Seed fills store with users, completed researches with reports, and
// pending and failed researches. Every user logs in with DefaultPassword.
func Seed(ctx context.Context, store storage.Storage, cfg SeedConfig) (*SeedResult, error) {
	g := NewGenerator(cfg.Seed)
	hashed, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tiers := []models.SubscriptionTier{models.TierFree, models.TierIntermediate}
	if cfg.IncludeAdvancedUsers {
		tiers = append(tiers, models.TierAdvanced)
	}

	result := &SeedResult{}
	for i := 0; i < cfg.Users; i++ {
		req := g.RegisterRequest()
		user, err := store.CreateUser(ctx, &models.User{
			Username:         req.Username,
			Password:         hashed,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Email:            req.Email,
			SubscriptionTier: tiers[i%len(tiers)],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", req.Username, err)
		}
		result.Users = append(result.Users, user)

		for j := 0; j < cfg.ResearchesPerUser; j++ {
			research, err := store.CreateResearch(ctx, g.Research(user.ID, j%2 == 0, models.ResearchCompleted))
			if err != nil {
				return nil, fmt.Errorf("failed to create research: %w", err)
			}
			result.Researches++

			if _, err := store.CreateReport(ctx, &models.Report{
				UserID:     user.ID,
				ResearchID: research.ID,
				Content:    g.ReportContent(research),
			}); err != nil {
				return nil, fmt.Errorf("failed to create report: %w", err)
			}
			result.Reports++
		}

		for _, status := range statuses(cfg.PendingPerUser, cfg.FailedPerUser) {
			if _, err := store.CreateResearch(ctx, g.Research(user.ID, true, status)); err != nil {
				return nil, fmt.Errorf("failed to create research: %w", err)
			}
			result.Researches++
		}
	}
	return result, nil
}

func statuses(pending, failed int) []models.ResearchStatus {
	out := make([]models.ResearchStatus, 0, pending+failed)
	for i := 0; i < pending; i++ {
		out = append(out, models.ResearchPending)
	}
	for i := 0; i < failed; i++ {
		out = append(out, models.ResearchFailed)
	}
	return out
}
