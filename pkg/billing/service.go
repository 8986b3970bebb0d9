// Package billing sells the paid subscription tiers through Stripe and keeps
// each user's tier in step with Stripe's webhook events.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/metrics"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

var (
	// ErrBillingDisabled is returned when no Stripe key is configured
	ErrBillingDisabled = errors.New("billing is not configured")
	// ErrNoSubscription is returned when cancelling without an active subscription
	ErrNoSubscription = errors.New("user has no active subscription")
	// ErrUnknownTier is returned for a tier that cannot be bought
	ErrUnknownTier = errors.New("tier is not for sale")
)

// EmailSender abstracts email sending for billing notifications.
type EmailSender interface {
	SendEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error
}

// Config holds the Stripe price ids of the paid tiers
type Config struct {
	PriceIntermediate string
	PriceAdvanced     string
	BaseURL           string
}

// Service handles Stripe billing operations
type Service struct {
	store   storage.Storage
	gateway Gateway
	config  Config
	email   EmailSender
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new billing service. A nil gateway disables billing.
func NewService(store storage.Storage, gateway Gateway, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		gateway: gateway,
		config:  cfg,
		metrics: m,
		logger:  logger,
	}
}

// SetEmailSender sets the email sender for billing notifications.
func (s *Service) SetEmailSender(e EmailSender) {
	s.email = e
}

// Enabled reports whether a Stripe gateway is configured
func (s *Service) Enabled() bool {
	return s.gateway != nil
}

// CreateSubscription starts a subscription to tier for user. The Stripe
// customer is created on first purchase. The tier itself changes when
// Stripe confirms payment through the webhook.
func (s *Service) CreateSubscription(ctx context.Context, user *models.User, tier models.SubscriptionTier) (*models.CreateSubscriptionResponse, error) {
	if !s.Enabled() {
		return nil, ErrBillingDisabled
	}
	priceID, err := s.priceForTier(tier)
	if err != nil {
		return nil, err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(user.Email, user.Username, user.ID)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{StripeCustomerID: &customerID}); err != nil {
			return nil, fmt.Errorf("failed to save customer ID: %w", err)
		}
	}

	subID, clientSecret, err := s.gateway.CreateSubscription(customerID, priceID, user.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{StripeSubscriptionID: &subID}); err != nil {
		return nil, fmt.Errorf("failed to save subscription ID: %w", err)
	}

	s.logger.Info("subscription created",
		zap.Int("user_id", user.ID),
		zap.String("tier", string(tier)),
		zap.String("subscription_id", subID))
	return &models.CreateSubscriptionResponse{SubscriptionID: subID, ClientSecret: clientSecret}, nil
}

// CancelSubscription cancels the user's subscription and moves them to free
func (s *Service) CancelSubscription(ctx context.Context, user *models.User) error {
	if !s.Enabled() {
		return ErrBillingDisabled
	}
	if user.StripeSubscriptionID == "" {
		return ErrNoSubscription
	}
	if err := s.gateway.CancelSubscription(user.StripeSubscriptionID); err != nil {
		return err
	}

	free := models.TierFree
	empty := ""
	updated, err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{
		SubscriptionTier:     &free,
		StripeSubscriptionID: &empty,
	})
	if err != nil {
		return fmt.Errorf("failed to downgrade user: %w", err)
	}
	if updated != nil {
		s.notifyCancelled(updated)
	}
	s.logger.Info("subscription cancelled", zap.Int("user_id", user.ID))
	return nil
}

// HandleWebhook processes Stripe webhook events
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.Enabled() {
		return ErrBillingDisabled
	}
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("stripe webhook received", zap.String("type", string(event.Type)))

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.Debug("unhandled webhook event type", zap.String("type", string(event.Type)))
	}
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	user, err := s.userForSubscription(ctx, &sub)
	if err != nil || user == nil {
		return err
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		tier, ok := s.tierForSubscription(&sub)
		if !ok {
			s.logger.Warn("subscription has no known price", zap.String("subscription_id", sub.ID))
			return nil
		}
		if user.SubscriptionTier == tier && user.StripeSubscriptionID == sub.ID {
			return nil
		}
		subID := sub.ID
		if _, err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{SubscriptionTier: &tier, StripeSubscriptionID: &subID}); err != nil {
			return fmt.Errorf("failed to update user tier: %w", err)
		}
		s.metrics.RecordSubscriptionSold(string(tier))
		s.logger.Info("user upgraded", zap.Int("user_id", user.ID), zap.String("tier", string(tier)))
		s.notifyActivated(user, tier)

	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		s.logger.Warn("subscription past due", zap.Int("user_id", user.ID), zap.String("status", string(sub.Status)))
		s.notifyPaymentFailed(user)

	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return s.downgrade(ctx, user, sub.ID)
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	user, err := s.userForSubscription(ctx, &sub)
	if err != nil || user == nil {
		return err
	}
	return s.downgrade(ctx, user, sub.ID)
}

// downgrade moves user to free unless a different subscription replaced subID
func (s *Service) downgrade(ctx context.Context, user *models.User, subID string) error {
	if user.StripeSubscriptionID != "" && user.StripeSubscriptionID != subID {
		return nil
	}
	if user.SubscriptionTier == models.TierFree && user.StripeSubscriptionID == "" {
		return nil
	}
	free := models.TierFree
	empty := ""
	if _, err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{SubscriptionTier: &free, StripeSubscriptionID: &empty}); err != nil {
		return fmt.Errorf("failed to downgrade user: %w", err)
	}
	s.logger.Info("user downgraded to free", zap.Int("user_id", user.ID))
	s.notifyCancelled(user)
	return nil
}

func (s *Service) userForSubscription(ctx context.Context, sub *stripe.Subscription) (*models.User, error) {
	if sub.Customer == nil || sub.Customer.ID == "" {
		s.logger.Warn("subscription without customer", zap.String("subscription_id", sub.ID))
		return nil, nil
	}
	user, err := s.store.GetUserByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.logger.Warn("no user for stripe customer", zap.String("customer_id", sub.Customer.ID))
	}
	return user, nil
}

// TierForPrice maps a Stripe price id to the tier it sells
func (s *Service) TierForPrice(priceID string) (models.SubscriptionTier, bool) {
	switch {
	case priceID == "":
		return "", false
	case priceID == s.config.PriceIntermediate:
		return models.TierIntermediate, true
	case priceID == s.config.PriceAdvanced:
		return models.TierAdvanced, true
	}
	return "", false
}

func (s *Service) tierForSubscription(sub *stripe.Subscription) (models.SubscriptionTier, bool) {
	if sub.Items == nil {
		return "", false
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		if tier, ok := s.TierForPrice(item.Price.ID); ok {
			return tier, true
		}
	}
	return "", false
}

func (s *Service) priceForTier(tier models.SubscriptionTier) (string, error) {
	var price string
	switch tier {
	case models.TierIntermediate:
		price = s.config.PriceIntermediate
	case models.TierAdvanced:
		price = s.config.PriceAdvanced
	}
	if price == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	return price, nil
}

func (s *Service) notifyActivated(user *models.User, tier models.SubscriptionTier) {
	if s.email == nil {
		return
	}
	limits := quota.LimitsFor(tier)
	subject, html, plain := buildSubscriptionActivatedEmail(user.FirstName, limits.Name, limits.Features, s.config.BaseURL)
	if err := s.email.SendEmail(user.Email, user.FirstName, subject, html, plain); err != nil {
		s.logger.Warn("failed to send activation email", zap.Int("user_id", user.ID), zap.Error(err))
	}
}

func (s *Service) notifyCancelled(user *models.User) {
	if s.email == nil {
		return
	}
	subject, html, plain := buildSubscriptionCancelledEmail(user.FirstName, s.config.BaseURL)
	if err := s.email.SendEmail(user.Email, user.FirstName, subject, html, plain); err != nil {
		s.logger.Warn("failed to send cancellation email", zap.Int("user_id", user.ID), zap.Error(err))
	}
}

func (s *Service) notifyPaymentFailed(user *models.User) {
	if s.email == nil {
		return
	}
	subject, html, plain := buildPaymentFailedEmail(user.FirstName, s.config.BaseURL)
	if err := s.email.SendEmail(user.Email, user.FirstName, subject, html, plain); err != nil {
		s.logger.Warn("failed to send payment failed email", zap.Int("user_id", user.ID), zap.Error(err))
	}
}
