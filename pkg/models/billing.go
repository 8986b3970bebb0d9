package models

// CreateSubscriptionRequest is the body of POST /api/create-subscription
type CreateSubscriptionRequest struct {
	Tier SubscriptionTier `json:"tier" validate:"required,oneof=intermediate advanced"`
}

// CreateSubscriptionResponse carries the client secret the frontend confirms the payment with
type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
}

// PricingTier represents a pricing tier with details
type PricingTier struct {
	Tier               SubscriptionTier `json:"tier"`
	Name               string           `json:"name"`
	ResearchesPerMonth int              `json:"researchesPerMonth"`
	Unlimited          bool             `json:"unlimited"`
	Features           []string         `json:"features"`
}

// UsageResponse reports the monthly research quota of a user
type UsageResponse struct {
	Tier      SubscriptionTier `json:"tier"`
	Used      int              `json:"used"`
	Limit     int              `json:"limit"`
	Remaining int              `json:"remaining"`
	Unlimited bool             `json:"unlimited"`
	Enforced  bool             `json:"enforced"`
}
