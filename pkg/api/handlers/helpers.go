package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
)

const (
	requestTimeout = 5 * time.Second
	exportTimeout  = 30 * time.Second
)

// currentUser returns the user loaded by the JWT middleware
func currentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(middleware.ContextUser).(*models.User)
	return u, ok && u != nil
}

// parseID reads a positive integer path parameter. Anything else is
// treated as a lookup miss.
func parseID(c echo.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ownershipError maps service lookup errors to responses
func ownershipError(c echo.Context, err error, resource string) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return apierrors.NotFoundError(c, resource)
	case errors.Is(err, models.ErrForbidden):
		return apierrors.ForbiddenError(c, resource+" belongs to another user")
	case errors.Is(err, quota.ErrQuotaExceeded):
		tier := models.TierFree
		if u, ok := currentUser(c); ok {
			tier = u.SubscriptionTier
		}
		return apierrors.QuotaExceededError(c, tier)
	default:
		return apierrors.InternalError(c, err)
	}
}
