package models

import "time"

// SubscriptionTier is the service level a user pays for
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierIntermediate SubscriptionTier = "intermediate"
	TierAdvanced     SubscriptionTier = "advanced"
)

// Valid reports whether t is one of the known tiers
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierIntermediate, TierAdvanced:
		return true
	}
	return false
}

// User is an account holder. Password holds the bcrypt hash.
type User struct {
	ID                   int              `json:"id"`
	Username             string           `json:"username"`
	Password             string           `json:"-"`
	FirstName            string           `json:"firstName"`
	LastName             *string          `json:"lastName,omitempty"`
	Email                string           `json:"email"`
	SubscriptionTier     SubscriptionTier `json:"subscriptionTier"`
	StripeCustomerID     string           `json:"-"`
	StripeSubscriptionID string           `json:"-"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// UserPatch carries a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Username             *string
	Password             *string
	FirstName            *string
	LastName             *string
	Email                *string
	SubscriptionTier     *SubscriptionTier
	StripeCustomerID     *string
	StripeSubscriptionID *string
}

// Apply merges the patch over u
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.SubscriptionTier != nil {
		u.SubscriptionTier = *p.SubscriptionTier
	}
	if p.StripeCustomerID != nil {
		u.StripeCustomerID = *p.StripeCustomerID
	}
	if p.StripeSubscriptionID != nil {
		u.StripeSubscriptionID = *p.StripeSubscriptionID
	}
}

// UserStats aggregates a user's activity
type UserStats struct {
	TotalResearches  int `json:"totalResearches"`
	TotalCompetitors int `json:"totalCompetitors"`
	TotalReports     int `json:"totalReports"`
}
