package research

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/jobs"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

type failingQueue struct{}

func (failingQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	return errors.New("queue down")
}

func createRequest(autoFind bool) models.CreateResearchRequest {
	req := models.CreateResearchRequest{
		Title:               "CRM study",
		Product:             "CRM",
		ProductCategory:     "tech",
		Country:             "Brazil",
		State:               "SP",
		City:                "Sao Paulo",
		AutoFindCompetitors: autoFind,
		AspectsToAnalyze:    []string{"price"},
	}
	if !autoFind {
		c := "A, B, C"
		req.Competitors = &c
	}
	return req
}

func setup(t *testing.T) (*Service, *storage.Memory, *jobs.MemoryQueue, *models.User, *models.User) {
	t.Helper()
	store := storage.NewMemory()
	queue := jobs.NewMemoryQueue(8)
	owner, err := store.CreateUser(context.Background(), &models.User{Username: "owner", Email: "owner@example.com", SubscriptionTier: models.TierFree})
	require.NoError(t, err)
	other, err := store.CreateUser(context.Background(), &models.User{Username: "other", Email: "other@example.com", SubscriptionTier: models.TierFree})
	require.NoError(t, err)
	return NewService(store, quota.NewTierPolicy(store, false), queue, nil, nil), store, queue, owner, other
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Auto-find research is enqueued and pending", func(t *testing.T) {
		svc, _, queue, owner, _ := setup(t)

		r, err := svc.Create(ctx, owner, createRequest(true))
		require.NoError(t, err)
		assert.Equal(t, models.ResearchPending, r.Status)
		assert.Equal(t, owner.ID, r.UserID)
		assert.True(t, r.IncludeGoogleAnalytics)
		assert.True(t, r.IncludeGoogleTrends)

		n, _ := queue.Len(ctx)
		require.Equal(t, int64(1), n)
		job, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, r.ID, job.ResearchID)
	})

	t.Run("Manual research is not enqueued", func(t *testing.T) {
		svc, _, queue, owner, _ := setup(t)

		r, err := svc.Create(ctx, owner, createRequest(false))
		require.NoError(t, err)
		assert.Equal(t, "A, B, C", *r.Competitors)
		n, _ := queue.Len(ctx)
		assert.Zero(t, n)
	})

	t.Run("Enqueue failure still returns the research", func(t *testing.T) {
		store := storage.NewMemory()
		owner, _ := store.CreateUser(ctx, &models.User{Username: "owner", Email: "o@example.com"})
		svc := NewService(store, nil, failingQueue{}, nil, nil)

		r, err := svc.Create(ctx, owner, createRequest(true))
		require.NoError(t, err)
		assert.Equal(t, models.ResearchPending, r.Status)
	})

	t.Run("Quota exceeded", func(t *testing.T) {
		store := storage.NewMemory()
		owner, _ := store.CreateUser(ctx, &models.User{Username: "owner", Email: "o@example.com", SubscriptionTier: models.TierFree})
		svc := NewService(store, quota.NewTierPolicy(store, true), nil, nil, nil)

		for i := 0; i < 5; i++ {
			_, err := svc.Create(ctx, owner, createRequest(false))
			require.NoError(t, err)
		}
		_, err := svc.Create(ctx, owner, createRequest(false))
		assert.ErrorIs(t, err, quota.ErrQuotaExceeded)

		list, _ := svc.List(ctx, owner.ID)
		assert.Len(t, list, 5)
	})

	t.Run("Concurrent creates stop at the limit", func(t *testing.T) {
		store := storage.NewMemory()
		owner, _ := store.CreateUser(ctx, &models.User{Username: "owner", Email: "o@example.com", SubscriptionTier: models.TierFree})
		svc := NewService(store, quota.NewTierPolicy(store, true), nil, nil, nil)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Create(ctx, owner, createRequest(false))
			}()
		}
		wg.Wait()

		list, err := svc.List(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, list, 5)
	})
}

func TestService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, _, _, owner, other := setup(t)
	r, err := svc.Create(ctx, owner, createRequest(false))
	require.NoError(t, err)

	t.Run("Owner reads", func(t *testing.T) {
		got, err := svc.Get(ctx, owner.ID, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	})

	t.Run("Other user is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, other.ID, r.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)

		title := "hijack"
		_, err = svc.Update(ctx, other.ID, r.ID, models.UpdateResearchRequest{Title: &title})
		assert.ErrorIs(t, err, models.ErrForbidden)

		assert.ErrorIs(t, svc.Delete(ctx, other.ID, r.ID), models.ErrForbidden)
		_, err = svc.GetReport(ctx, other.ID, r.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("Missing id is not found before forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, other.ID, 999)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Only own researches are listed", func(t *testing.T) {
		list, err := svc.List(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _, _, owner, _ := setup(t)
	r, err := svc.Create(ctx, owner, createRequest(false))
	require.NoError(t, err)

	title := "Renamed"
	updated, err := svc.Update(ctx, owner.ID, r.ID, models.UpdateResearchRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, r.Product, updated.Product)
	assert.Equal(t, r.AspectsToAnalyze, updated.AspectsToAnalyze)
	assert.Equal(t, models.ResearchPending, updated.Status)
}

func TestService_DeleteCascadesReports(t *testing.T) {
	ctx := context.Background()
	svc, store, _, owner, _ := setup(t)
	r, err := svc.Create(ctx, owner, createRequest(false))
	require.NoError(t, err)
	keep, err := svc.Create(ctx, owner, createRequest(false))
	require.NoError(t, err)

	_, err = store.CreateReport(ctx, &models.Report{UserID: owner.ID, ResearchID: r.ID})
	require.NoError(t, err)
	kept, err := store.CreateReport(ctx, &models.Report{UserID: owner.ID, ResearchID: keep.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner.ID, r.ID))

	_, err = svc.Get(ctx, owner.ID, r.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	reports, _ := store.GetReportsByUserID(ctx, owner.ID)
	require.Len(t, reports, 1)
	assert.Equal(t, kept.ID, reports[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, owner.ID, r.ID), models.ErrNotFound)
}

func TestService_GetReport(t *testing.T) {
	ctx := context.Background()
	svc, store, _, owner, _ := setup(t)
	r, err := svc.Create(ctx, owner, createRequest(false))
	require.NoError(t, err)

	_, err = svc.GetReport(ctx, owner.ID, r.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	first, _ := store.CreateReport(ctx, &models.Report{UserID: owner.ID, ResearchID: r.ID})
	_, _ = store.CreateReport(ctx, &models.Report{UserID: owner.ID, ResearchID: r.ID})

	got, err := svc.GetReport(ctx, owner.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
