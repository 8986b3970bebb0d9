package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

// Context keys set by JWTMiddleware
const (
	ContextToken    = "token"
	ContextClaims   = "claims"
	ContextUser     = "user"
	ContextUserID   = "user_id"
	ContextUserTier = "user_tier"
)

// UserLoader resolves the user a token was issued to
type UserLoader interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// JWTMiddleware authenticates a Bearer token, rejects revoked tokens when a
// blacklist is given, and loads the current user into the context
func JWTMiddleware(secret string, blacklist *auth.TokenBlacklist, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}
			token := parts[1]

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			if err != nil {
				message := "Token is invalid or expired"
				if errors.Is(err, auth.ErrTokenRevoked) {
					message = "Token has been revoked"
				}
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: message,
				})
			}

			user, err := users.GetUser(ctx, claims.UserID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:   "internal_error",
					Message: "An internal error occurred. Please try again later.",
				})
			}
			// deleted accounts keep valid-looking tokens until expiry
			if user == nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "user_not_found",
					Message: "User account not found",
				})
			}

			c.Set(ContextToken, token)
			c.Set(ContextClaims, claims)
			c.Set(ContextUser, user)
			c.Set(ContextUserID, user.ID)
			c.Set(ContextUserTier, string(user.SubscriptionTier))

			return next(c)
		}
	}
}
