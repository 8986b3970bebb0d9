package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/account"
	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts        *account.Service
	blacklist       *auth.TokenBlacklist
	jwtSecret       string
	expirationHours int
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewAuthHandler creates a new auth handler. blacklist may be nil when
// Redis is not configured; logout is then client-side only.
func NewAuthHandler(accounts *account.Service, blacklist *auth.TokenBlacklist, jwtSecret string, expirationHours int, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		accounts:        accounts,
		blacklist:       blacklist,
		jwtSecret:       jwtSecret,
		expirationHours: expirationHours,
		validator:       apierrors.NewValidator(),
		logger:          logger,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create a new free-tier account and return a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.AuthResponse "User registered successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 409 {object} models.ErrorResponse "User already exists"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.accounts.Register(ctx, req)
	if errors.Is(err, account.ErrUserExists) {
		return apierrors.ConflictError(c, "Username or email already exists")
	}
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with a username or email and a password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.accounts.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		return apierrors.InvalidCredentialsError(c)
	}
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// Logout godoc
// @Summary Log out
// @Description Revoke the current token until it would have expired
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse "Logged out"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, _ := c.Get(middleware.ContextToken).(string)
	claims, ok := c.Get(middleware.ContextClaims).(*auth.Claims)
	if !ok || token == "" {
		return apierrors.UnauthorizedError(c, "missing claims")
	}

	if h.blacklist != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
		defer cancel()

		if err := h.blacklist.Add(ctx, token, claims.RemainingTTL()); err != nil {
			return apierrors.InternalError(c, err)
		}
	}

	h.logger.Info("user logged out", zap.Int("user_id", claims.UserID))
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Logged out",
	})
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := auth.GenerateJWT(user.ID, user.Username, string(user.SubscriptionTier), h.jwtSecret, h.expirationHours)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(status, models.AuthResponse{Token: token, User: user})
}
