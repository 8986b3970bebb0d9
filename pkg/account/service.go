// Package account manages users: registration, credentials, profile
// changes, subscription tier and account deletion.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/metrics"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

var (
	// ErrUserExists is returned when a username or email is already taken
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// WelcomeNotifier greets newly registered users
type WelcomeNotifier interface {
	SendWelcomeEmail(toEmail, toName string) error
}

// Service handles account operations
type Service struct {
	store    storage.Storage
	metrics  *metrics.Metrics
	notifier WelcomeNotifier
	logger   *zap.Logger

	// serializes check-then-write on username and email
	mu sync.Mutex
}

// NewService creates a new account service
func NewService(store storage.Storage, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, metrics: m, logger: logger}
}

// WithNotifier sends a welcome email after registration
func (s *Service) WithNotifier(n WelcomeNotifier) *Service {
	s.notifier = n
	return s
}

// Register creates a free-tier user. Username and email are unique
// regardless of case.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureAvailable(ctx, 0, &req.Username, &req.Email); err != nil {
		return nil, err
	}

	created, err := s.store.CreateUser(ctx, &models.User{
		Username:         req.Username,
		Password:         hashed,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		SubscriptionTier: models.TierFree,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordUserRegistered()
	s.logger.Info("user registered", zap.Int("user_id", created.ID))

	if s.notifier != nil {
		go func(email, name string) {
			if err := s.notifier.SendWelcomeEmail(email, name); err != nil {
				s.logger.Warn("welcome email failed", zap.Error(err))
			}
		}(created.Email, created.FirstName)
	}
	return created, nil
}

// Authenticate checks a username-or-email and password pair
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	u, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(u.Password, password) {
		s.metrics.RecordLoginAttempt(false)
		return nil, ErrInvalidCredentials
	}
	s.metrics.RecordLoginAttempt(true)
	return u, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		u, err := s.store.GetUserByEmail(ctx, identifier)
		if err != nil || u != nil {
			return u, err
		}
	}
	return s.store.GetUserByUsername(ctx, identifier)
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, models.ErrNotFound
	}
	return u, nil
}

// UpdateProfile changes the supplied profile fields
func (s *Service) UpdateProfile(ctx context.Context, userID int, req models.UpdateProfileRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureAvailable(ctx, userID, req.Username, req.Email); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUser(ctx, userID, models.UserPatch{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return nil, models.ErrNotFound
	}
	return updated, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, userID int, req models.ChangePasswordRequest) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.store.UpdateUser(ctx, userID, models.UserPatch{Password: &hashed}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the user with every research and report they own
func (s *Service) DeleteAccount(ctx context.Context, userID int) error {
	reports, err := s.store.GetReportsByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	for _, r := range reports {
		if _, err := s.store.DeleteReport(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to delete report %d: %w", r.ID, err)
		}
	}

	researches, err := s.store.GetResearchesByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list researches: %w", err)
	}
	for _, r := range researches {
		if _, err := s.store.DeleteResearch(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to delete research %d: %w", r.ID, err)
		}
	}

	existed, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !existed {
		return models.ErrNotFound
	}
	s.logger.Info("account deleted",
		zap.Int("user_id", userID),
		zap.Int("researches", len(researches)),
		zap.Int("reports", len(reports)))
	return nil
}

// Stats returns the user's research, report and competitor totals
func (s *Service) Stats(ctx context.Context, userID int) (*models.UserStats, error) {
	stats, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

// SetTier moves a user to tier and records the Stripe ids when given
func (s *Service) SetTier(ctx context.Context, userID int, tier models.SubscriptionTier, customerID, subscriptionID *string) (*models.User, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid subscription tier %q", tier)
	}
	updated, err := s.store.UpdateUser(ctx, userID, models.UserPatch{
		SubscriptionTier:     &tier,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update tier: %w", err)
	}
	if updated == nil {
		return nil, models.ErrNotFound
	}
	s.logger.Info("subscription tier changed", zap.Int("user_id", userID), zap.String("tier", string(tier)))
	return updated, nil
}

// ensureAvailable fails when username or email belongs to a user other than selfID
func (s *Service) ensureAvailable(ctx context.Context, selfID int, username, email *string) error {
	if username != nil {
		u, err := s.store.GetUserByUsername(ctx, *username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if u != nil && u.ID != selfID {
			return ErrUserExists
		}
	}
	if email != nil {
		u, err := s.store.GetUserByEmail(ctx, *email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if u != nil && u.ID != selfID {
			return ErrUserExists
		}
	}
	return nil
}
