package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// runStorageContract exercises the behavior every Storage must share.
// newStore must return an empty store whose ids start at 1.
func runStorageContract(t *testing.T, newStore func(t *testing.T) Storage) {
	ctx := context.Background()

	t.Run("Users - create assigns sequential ids and default tier", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateUser(ctx, newUser("alice", "alice@example.com"))
		require.NoError(t, err)
		b, err := s.CreateUser(ctx, newUser("bob", "bob@example.com"))
		require.NoError(t, err)

		assert.Equal(t, 1, a.ID)
		assert.Equal(t, 2, b.ID)
		assert.Equal(t, models.TierFree, a.SubscriptionTier)
		assert.False(t, a.CreatedAt.IsZero())
	})

	t.Run("Users - missing id is nil without error", func(t *testing.T) {
		s := newStore(t)
		u, err := s.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, u)

		updated, err := s.UpdateUser(ctx, 42, models.UserPatch{FirstName: strPtr("x")})
		require.NoError(t, err)
		assert.Nil(t, updated)

		deleted, err := s.DeleteUser(ctx, 42)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Users - lookups ignore case", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateUser(ctx, newUser("Alice", "Alice@Example.com"))
		require.NoError(t, err)

		byName, err := s.GetUserByUsername(ctx, "ALICE")
		require.NoError(t, err)
		require.NotNil(t, byName)
		assert.Equal(t, created.ID, byName.ID)

		byEmail, err := s.GetUserByEmail(ctx, "alice@example.COM")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, created.ID, byEmail.ID)

		none, err := s.GetUserByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("Users - update merges only supplied fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateUser(ctx, newUser("carol", "carol@example.com"))
		require.NoError(t, err)

		tier := models.TierAdvanced
		updated, err := s.UpdateUser(ctx, created.ID, models.UserPatch{
			SubscriptionTier: &tier,
			StripeCustomerID: strPtr("cus_123"),
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, models.TierAdvanced, updated.SubscriptionTier)
		assert.Equal(t, "carol", updated.Username)
		assert.Equal(t, "carol@example.com", updated.Email)
		assert.Equal(t, created.Password, updated.Password)

		byCustomer, err := s.GetUserByStripeCustomerID(ctx, "cus_123")
		require.NoError(t, err)
		require.NotNil(t, byCustomer)
		assert.Equal(t, created.ID, byCustomer.ID)
	})

	t.Run("Researches - ids are never reused after delete", func(t *testing.T) {
		s := newStore(t)
		first, err := s.CreateResearch(ctx, newResearch(1, "CRM"))
		require.NoError(t, err)
		second, err := s.CreateResearch(ctx, newResearch(1, "ERP"))
		require.NoError(t, err)

		deleted, err := s.DeleteResearch(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		third, err := s.CreateResearch(ctx, newResearch(1, "HR"))
		require.NoError(t, err)
		assert.Equal(t, 1, first.ID)
		assert.Equal(t, 2, second.ID)
		assert.Equal(t, 3, third.ID)

		again, err := s.DeleteResearch(ctx, second.ID)
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("Researches - create defaults to pending", func(t *testing.T) {
		s := newStore(t)
		r := newResearch(1, "CRM")
		r.Status = ""
		created, err := s.CreateResearch(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, models.ResearchPending, created.Status)

		got, err := s.GetResearch(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.Title, got.Title)
		assert.Equal(t, []string{"online", "retail"}, got.SalesChannels)
		assert.Equal(t, []string{"price", "features"}, got.AspectsToAnalyze)
		require.NotNil(t, got.Competitors)
		assert.Equal(t, "A, B, C", *got.Competitors)
	})

	t.Run("Researches - owner listing is newest first and owner only", func(t *testing.T) {
		s := newStore(t)
		for _, product := range []string{"one", "two", "three"} {
			_, err := s.CreateResearch(ctx, newResearch(7, product))
			require.NoError(t, err)
		}
		_, err := s.CreateResearch(ctx, newResearch(8, "other"))
		require.NoError(t, err)

		list, err := s.GetResearchesByUserID(ctx, 7)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "three", list[0].Product)
		assert.Equal(t, "two", list[1].Product)
		assert.Equal(t, "one", list[2].Product)
		for _, r := range list {
			assert.Equal(t, 7, r.UserID)
		}

		empty, err := s.GetResearchesByUserID(ctx, 99)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("Researches - update preserves omitted fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateResearch(ctx, newResearch(1, "CRM"))
		require.NoError(t, err)

		status := models.ResearchCompleted
		updated, err := s.UpdateResearch(ctx, created.ID, models.ResearchPatch{
			Competitors: strPtr("X, Y"),
			Status:      &status,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "X, Y", *updated.Competitors)
		assert.Equal(t, models.ResearchCompleted, updated.Status)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Product, updated.Product)
		assert.Equal(t, created.SalesChannels, updated.SalesChannels)
		assert.Equal(t, created.AspectsToAnalyze, updated.AspectsToAnalyze)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

		missing, err := s.UpdateResearch(ctx, 999, models.ResearchPatch{Status: &status})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Researches - status listing is oldest first", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateResearch(ctx, newResearch(1, "a"))
		require.NoError(t, err)
		b, err := s.CreateResearch(ctx, newResearch(2, "b"))
		require.NoError(t, err)
		c, err := s.CreateResearch(ctx, newResearch(1, "c"))
		require.NoError(t, err)

		failed := models.ResearchFailed
		_, err = s.UpdateResearch(ctx, b.ID, models.ResearchPatch{Status: &failed})
		require.NoError(t, err)

		pending, err := s.GetResearchesByStatus(ctx, models.ResearchPending)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, a.ID, pending[0].ID)
		assert.Equal(t, c.ID, pending[1].ID)
	})

	t.Run("Reports - lookup by research returns the first match", func(t *testing.T) {
		s := newStore(t)
		first, err := s.CreateReport(ctx, newReport(1, 5, "First"))
		require.NoError(t, err)
		_, err = s.CreateReport(ctx, newReport(1, 5, "Second"))
		require.NoError(t, err)

		got, err := s.GetReportByResearchID(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "First", got.Content.Competitors[0].Name)

		none, err := s.GetReportByResearchID(ctx, 6)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("Reports - content survives storage", func(t *testing.T) {
		s := newStore(t)
		r := newReport(1, 1, "Acme")
		r.Content.PriceComparison = &models.PriceComparison{
			Data:     []models.PricePoint{{Competitor: "Acme", Price: 99.5}},
			Analysis: "Acme is premium",
		}
		created, err := s.CreateReport(ctx, r)
		require.NoError(t, err)

		got, err := s.GetReport(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.Content.PriceComparison)
		assert.Equal(t, 99.5, got.Content.PriceComparison.Data[0].Price)
		assert.Nil(t, got.Content.MarketShare)
		assert.Equal(t, []string{"finding"}, got.Content.Conclusions.Findings)
	})

	t.Run("Reports - update replaces content", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateReport(ctx, newReport(1, 1, "Acme"))
		require.NoError(t, err)

		content := newReport(1, 1, "Globex").Content
		updated, err := s.UpdateReport(ctx, created.ID, models.ReportPatch{Content: &content})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Globex", updated.Content.Competitors[0].Name)
		assert.Equal(t, created.ResearchID, updated.ResearchID)

		missing, err := s.UpdateReport(ctx, 999, models.ReportPatch{Content: &content})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Reports - owner listing is newest first", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateReport(ctx, newReport(3, 1, "A"))
		require.NoError(t, err)
		b, err := s.CreateReport(ctx, newReport(3, 2, "B"))
		require.NoError(t, err)
		_, err = s.CreateReport(ctx, newReport(4, 3, "C"))
		require.NoError(t, err)

		list, err := s.GetReportsByUserID(ctx, 3)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, b.ID, list[0].ID)
		assert.Equal(t, a.ID, list[1].ID)
	})

	t.Run("Stats - competitors are summed without deduplication", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateResearch(ctx, newResearch(1, "CRM"))
		require.NoError(t, err)
		_, err = s.CreateResearch(ctx, newResearch(1, "ERP"))
		require.NoError(t, err)
		_, err = s.CreateReport(ctx, newReport(1, 1, "Acme", "Globex"))
		require.NoError(t, err)
		_, err = s.CreateReport(ctx, newReport(1, 2, "Acme", "Globex", "Initech"))
		require.NoError(t, err)
		_, err = s.CreateReport(ctx, newReport(2, 3, "Other"))
		require.NoError(t, err)

		stats, err := s.GetUserStats(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalResearches)
		assert.Equal(t, 2, stats.TotalReports)
		assert.Equal(t, 5, stats.TotalCompetitors)

		empty, err := s.GetUserStats(ctx, 99)
		require.NoError(t, err)
		assert.Equal(t, models.UserStats{}, *empty)
	})

	t.Run("Delete user does not cascade", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, newUser("dave", "dave@example.com"))
		require.NoError(t, err)
		r, err := s.CreateResearch(ctx, newResearch(u.ID, "CRM"))
		require.NoError(t, err)

		deleted, err := s.DeleteUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		orphan, err := s.GetResearch(ctx, r.ID)
		require.NoError(t, err)
		assert.NotNil(t, orphan)
	})
}

func newUser(username, email string) *models.User {
	return &models.User{
		Username:  username,
		Password:  "$2a$10$hash",
		FirstName: "Test",
		Email:     email,
	}
}

func newResearch(userID int, product string) *models.Research {
	return &models.Research{
		UserID:                 userID,
		Title:                  "Research " + product,
		Product:                product,
		ProductCategory:        "tech",
		SalesChannels:          []string{"online", "retail"},
		Country:                "Brazil",
		State:                  "SP",
		City:                   "Sao Paulo",
		Competitors:            strPtr("A, B, C"),
		AspectsToAnalyze:       []string{"price", "features"},
		IncludeGoogleAnalytics: true,
		IncludeGoogleTrends:    true,
		Status:                 models.ResearchPending,
	}
}

func newReport(userID, researchID int, competitors ...string) *models.Report {
	profiles := make([]models.CompetitorProfile, 0, len(competitors))
	for _, name := range competitors {
		profiles = append(profiles, models.CompetitorProfile{Name: name})
	}
	return &models.Report{
		UserID:     userID,
		ResearchID: researchID,
		Content: models.ReportContent{
			Competitors: profiles,
			Conclusions: models.Conclusions{
				Findings:        []string{"finding"},
				Opportunities:   []string{"opportunity"},
				Recommendations: []string{"recommendation"},
			},
		},
	}
}

func strPtr(s string) *string { return &s }
