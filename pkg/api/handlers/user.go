package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/rivalscope/pkg/account"
	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
)

// UserHandler handles the current user's account endpoints
type UserHandler struct {
	accounts  *account.Service
	quota     quota.Checker
	validator *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(accounts *account.Service, checker quota.Checker) *UserHandler {
	return &UserHandler{
		accounts:  accounts,
		quota:     checker,
		validator: apierrors.NewValidator(),
	}
}

// Me godoc
// @Summary Get current user
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /user [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Change username, name or email. Omitted fields are kept.
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 409 {object} models.ErrorResponse "Username or email taken"
// @Router /user [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	updated, err := h.accounts.UpdateProfile(ctx, user.ID, req)
	if errors.Is(err, account.ErrUserExists) {
		return apierrors.ConflictError(c, "Username or email already exists")
	}
	if err != nil {
		return ownershipError(c, err, "User")
	}
	return c.JSON(http.StatusOK, updated)
}

// ChangePassword godoc
// @Summary Change password
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Validation error or wrong current password"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /user/password [patch]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	var req models.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.accounts.ChangePassword(ctx, user.ID, req)
	if errors.Is(err, account.ErrInvalidCredentials) {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_password",
			Message: "Current password is incorrect",
		})
	}
	if err != nil {
		return ownershipError(c, err, "User")
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Password updated",
	})
}

// Delete godoc
// @Summary Delete account
// @Description Delete the current user with all their researches and reports
// @Tags User
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /user [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.accounts.DeleteAccount(ctx, user.ID); err != nil {
		return ownershipError(c, err, "User")
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats godoc
// @Summary Get user statistics
// @Description Totals of researches, reports and profiled competitors
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserStats
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /user/stats [get]
func (h *UserHandler) Stats(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	stats, err := h.accounts.Stats(ctx, user.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Usage godoc
// @Summary Get monthly quota usage
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UsageResponse
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /user/usage [get]
func (h *UserHandler) Usage(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	usage, err := h.quota.Usage(ctx, user)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, usage)
}
