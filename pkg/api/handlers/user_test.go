package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

func TestUserHandler_Me(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "ada")

	rec := serve(t, env.users.Me, request{method: http.MethodGet, path: "/api/user", user: user})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decode[models.User](t, rec).Username)

	rec = serve(t, env.users.Me, request{method: http.MethodGet, path: "/api/user"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "ada")
	env.createUser(t, "grace")

	t.Run("partial_update", func(t *testing.T) {
		rec := serve(t, env.users.UpdateProfile, request{
			method: http.MethodPatch,
			path:   "/api/user",
			body:   map[string]any{"firstName": "Augusta"},
			user:   user,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		got := decode[models.User](t, rec)
		assert.Equal(t, "Augusta", got.FirstName)
		assert.Equal(t, "ada", got.Username)
	})

	t.Run("email_taken", func(t *testing.T) {
		rec := serve(t, env.users.UpdateProfile, request{
			method: http.MethodPatch,
			path:   "/api/user",
			body:   map[string]any{"email": "Grace@Example.com"},
			user:   user,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid_email", func(t *testing.T) {
		rec := serve(t, env.users.UpdateProfile, request{
			method: http.MethodPatch,
			path:   "/api/user",
			body:   map[string]any{"email": "not-an-email"},
			user:   user,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_ChangePassword(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "ada")

	rec := serve(t, env.users.ChangePassword, request{
		method: http.MethodPatch,
		path:   "/api/user/password",
		body:   map[string]any{"currentPassword": "wrong-password", "newPassword": "new-password-1"},
		user:   user,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_password", decode[models.ErrorResponse](t, rec).Error)

	rec = serve(t, env.users.ChangePassword, request{
		method: http.MethodPatch,
		path:   "/api/user/password",
		body:   map[string]any{"currentPassword": "password123", "newPassword": "new-password-1"},
		user:   user,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.accounts.Authenticate(context.Background(), "ada", "new-password-1")
	assert.NoError(t, err)
}

func TestUserHandler_Delete(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "ada")
	r := env.createResearch(t, user, false)
	env.createReport(t, r)

	rec := serve(t, env.users.Delete, request{method: http.MethodDelete, path: "/api/user", user: user})
	require.Equal(t, http.StatusNoContent, rec.Code)

	ctx := context.Background()
	gone, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	research, err := env.store.GetResearch(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, research)

	report, err := env.store.GetReportByResearchID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestUserHandler_Stats(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "ada")
	for i := 0; i < 2; i++ {
		env.createReport(t, env.createResearch(t, user, false))
	}
	env.createResearch(t, user, true)

	rec := serve(t, env.users.Stats, request{method: http.MethodGet, path: "/api/user/stats", user: user})
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.UserStats](t, rec)
	assert.Equal(t, 3, stats.TotalResearches)
	assert.Equal(t, 2, stats.TotalReports)
	assert.Equal(t, 4, stats.TotalCompetitors)
	assert.JSONEq(t, `{"totalResearches":3,"totalCompetitors":4,"totalReports":2}`, rec.Body.String())
}

func TestUserHandler_Usage(t *testing.T) {
	env := newTestEnv(t, true)
	user := env.createUser(t, "ada")
	env.createResearch(t, user, false)

	rec := serve(t, env.users.Usage, request{method: http.MethodGet, path: "/api/user/usage", user: user})
	require.Equal(t, http.StatusOK, rec.Code)

	usage := decode[models.UsageResponse](t, rec)
	assert.Equal(t, models.TierFree, usage.Tier)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, 5, usage.Limit)
	assert.Equal(t, 4, usage.Remaining)
	assert.True(t, usage.Enforced)
}
