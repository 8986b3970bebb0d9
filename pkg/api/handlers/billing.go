package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/billing"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
)

// maxWebhookBody caps the Stripe payload read into memory
const maxWebhookBody = 64 << 10

// BillingHandler handles pricing, subscriptions and the Stripe webhook
type BillingHandler struct {
	billing   *billing.Service
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *billing.Service, logger *zap.Logger) *BillingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingHandler{
		billing:   billingService,
		validator: apierrors.NewValidator(),
		logger:    logger,
	}
}

// Pricing godoc
// @Summary Get pricing tiers
// @Description Monthly research limits and features of every plan
// @Tags Billing
// @Produce json
// @Success 200 {array} models.PricingTier
// @Router /pricing [get]
func (h *BillingHandler) Pricing(c echo.Context) error {
	return c.JSON(http.StatusOK, quota.Pricing())
}

// CreateSubscription godoc
// @Summary Start a subscription
// @Description Creates an incomplete Stripe subscription and returns the
// @Description client secret to confirm the first payment with
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateSubscriptionRequest true "Tier to buy"
// @Success 200 {object} models.CreateSubscriptionResponse
// @Failure 400 {object} models.ErrorResponse "Invalid tier"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 503 {object} models.ErrorResponse "Billing not configured"
// @Router /create-subscription [post]
func (h *BillingHandler) CreateSubscription(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	var req models.CreateSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*requestTimeout)
	defer cancel()

	resp, err := h.billing.CreateSubscription(ctx, user, req.Tier)
	if err != nil {
		return h.billingError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CancelSubscription godoc
// @Summary Cancel the subscription
// @Description Cancels in Stripe and moves the user back to the free plan
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "No active subscription"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 503 {object} models.ErrorResponse "Billing not configured"
// @Router /cancel-subscription [post]
func (h *BillingHandler) CancelSubscription(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*requestTimeout)
	defer cancel()

	if err := h.billing.CancelSubscription(ctx, user); err != nil {
		return h.billingError(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Subscription cancelled",
	})
}

// Webhook godoc
// @Summary Handle Stripe webhook
// @Description Applies subscription changes sent by Stripe
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid payload or signature"
// @Failure 503 {object} models.ErrorResponse "Billing not configured"
// @Router /webhooks/stripe [post]
func (h *BillingHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_body",
			Message: "Failed to read request body",
		})
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing_signature",
			Message: "Stripe-Signature header is required",
		})
	}

	if err := h.billing.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		if errors.Is(err, billing.ErrBillingDisabled) {
			return apierrors.ServiceUnavailableError(c, "Billing is not configured")
		}
		h.logger.Warn("stripe webhook rejected", zap.Error(err))
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "webhook_error",
			Message: "Webhook could not be processed",
		})
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *BillingHandler) billingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, billing.ErrBillingDisabled):
		return apierrors.ServiceUnavailableError(c, "Billing is not configured")
	case errors.Is(err, billing.ErrNoSubscription):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no_subscription",
			Message: "There is no active subscription to cancel",
		})
	case errors.Is(err, billing.ErrUnknownTier):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_tier",
			Message: "This plan cannot be purchased",
		})
	default:
		return apierrors.InternalError(c, err)
	}
}
