package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apimiddleware "github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

// TierLimits is the request rate allowed for one subscription tier
type TierLimits struct {
	RequestsPerMinute int
	Burst             int
}

// DefaultTierLimits returns the request rates of the paid plans. They bound
// API traffic, not research creation, which the monthly quota covers.
func DefaultTierLimits() map[models.SubscriptionTier]TierLimits {
	return map[models.SubscriptionTier]TierLimits{
		models.TierFree:         {RequestsPerMinute: 60, Burst: 10},
		models.TierIntermediate: {RequestsPerMinute: 180, Burst: 30},
		models.TierAdvanced:     {RequestsPerMinute: 600, Burst: 100},
	}
}

type userKey struct {
	id   int
	tier models.SubscriptionTier
}

// TierRateLimiter limits authenticated users by their tier and everyone
// else by IP. It must run after the JWT middleware.
type TierRateLimiter struct {
	users map[userKey]*rate.Limiter
	ips   map[string]*rate.Limiter
	mu    sync.Mutex

	tierLimits    map[models.SubscriptionTier]TierLimits
	defaultLimits TierLimits
}

// NewTierRateLimiter creates a limiter with the default tier table. Idle
// limiters are dropped until ctx is cancelled.
func NewTierRateLimiter(ctx context.Context) *TierRateLimiter {
	trl := &TierRateLimiter{
		users:         make(map[userKey]*rate.Limiter),
		ips:           make(map[string]*rate.Limiter),
		tierLimits:    DefaultTierLimits(),
		defaultLimits: TierLimits{RequestsPerMinute: 30, Burst: 5},
	}
	go trl.cleanupLoop(ctx)
	return trl
}

// getUserLimiter keys on tier too, so an upgrade takes effect on the next request
func (trl *TierRateLimiter) getUserLimiter(userID int, tier models.SubscriptionTier) *rate.Limiter {
	trl.mu.Lock()
	defer trl.mu.Unlock()

	key := userKey{id: userID, tier: tier}
	if limiter, ok := trl.users[key]; ok {
		return limiter
	}
	limits, ok := trl.tierLimits[tier]
	if !ok {
		limits = trl.tierLimits[models.TierFree]
	}
	limiter := rate.NewLimiter(perMinute(limits.RequestsPerMinute), limits.Burst)
	trl.users[key] = limiter
	return limiter
}

func (trl *TierRateLimiter) getIPLimiter(ip string) *rate.Limiter {
	trl.mu.Lock()
	defer trl.mu.Unlock()

	if limiter, ok := trl.ips[ip]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(perMinute(trl.defaultLimits.RequestsPerMinute), trl.defaultLimits.Burst)
	trl.ips[ip] = limiter
	return limiter
}

func (trl *TierRateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trl.cleanup()
		}
	}
}

func (trl *TierRateLimiter) cleanup() {
	trl.mu.Lock()
	defer trl.mu.Unlock()
	for key, limiter := range trl.users {
		if limiter.Tokens() >= float64(limiter.Burst()) {
			delete(trl.users, key)
		}
	}
	for ip, limiter := range trl.ips {
		if limiter.Tokens() >= float64(limiter.Burst()) {
			delete(trl.ips, ip)
		}
	}
}

// Middleware rejects requests over the caller's tier limit with 429
func (trl *TierRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, hasUser := c.Get(apimiddleware.ContextUserID).(int)
			tier, hasTier := c.Get(apimiddleware.ContextUserTier).(string)

			var limiter *rate.Limiter
			label := "unauthenticated"
			if hasUser && hasTier {
				limiter = trl.getUserLimiter(userID, models.SubscriptionTier(tier))
				label = tier
			} else {
				limiter = trl.getIPLimiter(clientIP(c))
			}

			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
					Error:   "rate_limit_exceeded",
					Message: fmt.Sprintf("Rate limit exceeded for the %s tier. Upgrade for higher limits or try again later.", label),
				})
			}
			return next(c)
		}
	}
}

// GetTierLimits returns the limits of tier
func (trl *TierRateLimiter) GetTierLimits(tier models.SubscriptionTier) (TierLimits, bool) {
	trl.mu.Lock()
	defer trl.mu.Unlock()
	limits, ok := trl.tierLimits[tier]
	return limits, ok
}

// SetTierLimits overrides the limits of tier for limiters created afterwards
func (trl *TierRateLimiter) SetTierLimits(tier models.SubscriptionTier, requestsPerMinute, burst int) {
	trl.mu.Lock()
	defer trl.mu.Unlock()
	trl.tierLimits[tier] = TierLimits{RequestsPerMinute: requestsPerMinute, Burst: burst}
}
