package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

type welcomeRecorder struct {
	mu   sync.Mutex
	sent []string
}

func (w *welcomeRecorder) SendWelcomeEmail(toEmail, toName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, toEmail)
	return nil
}

func (w *welcomeRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sent)
}

func registerRequest(username, email string) models.RegisterRequest {
	return models.RegisterRequest{
		Username:  username,
		Password:  "correct-horse",
		FirstName: "Ada",
		Email:     email,
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Free tier with hashed password", func(t *testing.T) {
		notifier := &welcomeRecorder{}
		svc := NewService(storage.NewMemory(), nil, nil).WithNotifier(notifier)

		u, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
		require.NoError(t, err)
		assert.Equal(t, models.TierFree, u.SubscriptionTier)
		assert.NotEqual(t, "correct-horse", u.Password)
		assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("Username taken regardless of case", func(t *testing.T) {
		svc := NewService(storage.NewMemory(), nil, nil)
		_, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
		require.NoError(t, err)

		_, err = svc.Register(ctx, registerRequest("ADA", "other@example.com"))
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("Email taken regardless of case", func(t *testing.T) {
		svc := NewService(storage.NewMemory(), nil, nil)
		_, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
		require.NoError(t, err)

		_, err = svc.Register(ctx, registerRequest("grace", "Ada@Example.com"))
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("Concurrent duplicates create one user", func(t *testing.T) {
		store := storage.NewMemory()
		svc := NewService(store, nil, nil)

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Register(ctx, registerRequest("ada", "ada@example.com"))
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrUserExists)
			}
		}
		assert.Equal(t, 1, ok)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory(), nil, nil)
	created, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)

	t.Run("By username", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "ada", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
	})

	t.Run("By email", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "ADA@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ada", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory(), nil, nil)
	ada, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerRequest("grace", "grace@example.com"))
	require.NoError(t, err)

	t.Run("Keeps own username", func(t *testing.T) {
		name := "Augusta"
		same := "ada"
		u, err := svc.UpdateProfile(ctx, ada.ID, models.UpdateProfileRequest{FirstName: &name, Username: &same})
		require.NoError(t, err)
		assert.Equal(t, "Augusta", u.FirstName)
		assert.Equal(t, "ada@example.com", u.Email)
	})

	t.Run("Email of another user", func(t *testing.T) {
		email := "GRACE@example.com"
		_, err := svc.UpdateProfile(ctx, ada.ID, models.UpdateProfileRequest{Email: &email})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("Missing user", func(t *testing.T) {
		name := "x"
		_, err := svc.UpdateProfile(ctx, 999, models.UpdateProfileRequest{FirstName: &name})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory(), nil, nil)
	u, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, models.ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password"}))

	_, err = svc.Authenticate(ctx, "ada", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ada", "new-password")
	assert.NoError(t, err)
}

func TestService_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := NewService(store, nil, nil)
	ada, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)
	grace, err := svc.Register(ctx, registerRequest("grace", "grace@example.com"))
	require.NoError(t, err)

	r, _ := store.CreateResearch(ctx, &models.Research{UserID: ada.ID, Title: "a"})
	_, _ = store.CreateReport(ctx, &models.Report{UserID: ada.ID, ResearchID: r.ID})
	gr, _ := store.CreateResearch(ctx, &models.Research{UserID: grace.ID, Title: "g"})
	_, _ = store.CreateReport(ctx, &models.Report{UserID: grace.ID, ResearchID: gr.ID})

	require.NoError(t, svc.DeleteAccount(ctx, ada.ID))

	_, err = svc.Get(ctx, ada.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	stats, err := svc.Stats(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{}, *stats)

	stats, err = svc.Stats(ctx, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalResearches)
	assert.Equal(t, 1, stats.TotalReports)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, ada.ID), models.ErrNotFound)
}

func TestService_SetTier(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory(), nil, nil)
	u, err := svc.Register(ctx, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)

	sub := "sub_123"
	updated, err := svc.SetTier(ctx, u.ID, models.TierAdvanced, nil, &sub)
	require.NoError(t, err)
	assert.Equal(t, models.TierAdvanced, updated.SubscriptionTier)
	assert.Equal(t, "sub_123", updated.StripeSubscriptionID)

	_, err = svc.SetTier(ctx, u.ID, "platinum", nil, nil)
	assert.Error(t, err)
}
