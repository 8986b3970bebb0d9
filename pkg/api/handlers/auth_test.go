package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/cache"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

func TestAuthHandler_Register(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("success", func(t *testing.T) {
		rec := serve(t, env.auth.Register, request{
			method: http.MethodPost,
			path:   "/api/register",
			body: map[string]any{
				"username":  "ada",
				"password":  "password123",
				"firstName": "Ada",
				"email":     "ada@example.com",
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "ada", resp.User.Username)
		assert.Equal(t, models.TierFree, resp.User.SubscriptionTier)
		assert.NotContains(t, rec.Body.String(), "password123")

		claims, err := auth.ValidateJWT(resp.Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
	})

	t.Run("duplicate_username_ignores_case", func(t *testing.T) {
		rec := serve(t, env.auth.Register, request{
			method: http.MethodPost,
			path:   "/api/register",
			body: map[string]any{
				"username":  "ADA",
				"password":  "password123",
				"firstName": "Ada",
				"email":     "other@example.com",
			},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation_message_names_fields", func(t *testing.T) {
		rec := serve(t, env.auth.Register, request{
			method: http.MethodPost,
			path:   "/api/register",
			body:   map[string]any{"username": "bo", "password": "short", "email": "nope"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Contains(t, resp.Message, "username must be at least 3 characters long")
		assert.Contains(t, resp.Message, "firstName is required")
		assert.Contains(t, resp.Message, "email must be a valid email address")
	})

	t.Run("malformed_body", func(t *testing.T) {
		rec := serve(t, env.auth.Register, request{
			method: http.MethodPost,
			path:   "/api/register",
			body:   "{not json",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "grace")

	t.Run("by_username", func(t *testing.T) {
		rec := serve(t, env.auth.Login, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   map[string]any{"username": "grace", "password": "password123"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, decode[models.AuthResponse](t, rec).User.ID)
	})

	t.Run("by_email", func(t *testing.T) {
		rec := serve(t, env.auth.Login, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   map[string]any{"username": "GRACE@example.com", "password": "password123"},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong_password", func(t *testing.T) {
		rec := serve(t, env.auth.Login, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   map[string]any{"username": "grace", "password": "wrong-password"},
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_credentials", decode[models.ErrorResponse](t, rec).Error)
	})

	t.Run("unknown_user", func(t *testing.T) {
		rec := serve(t, env.auth.Login, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   map[string]any{"username": "nobody", "password": "password123"},
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "linus")

	mr := miniredis.RunT(t)
	blacklist := auth.NewTokenBlacklist(cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})))
	h := NewAuthHandler(env.accounts, blacklist, testSecret, 1, nil)

	token, claims := tokenFor(t, user)

	rec := serve(t, func(c echo.Context) error {
		c.Set(middleware.ContextToken, token)
		c.Set(middleware.ContextClaims, claims)
		return h.Logout(c)
	}, request{method: http.MethodPost, path: "/api/logout", user: user})
	assert.Equal(t, http.StatusOK, rec.Code)

	revoked, err := blacklist.IsBlacklisted(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = auth.ValidateJWTWithBlacklist(context.Background(), token, testSecret, blacklist)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestAuthHandler_LogoutWithoutClaims(t *testing.T) {
	env := newTestEnv(t, false)
	rec := serve(t, env.auth.Logout, request{method: http.MethodPost, path: "/api/logout"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
