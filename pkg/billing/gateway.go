package billing

import (
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	stripesubscription "github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Gateway is the slice of the Stripe API billing uses
type Gateway interface {
	CreateCustomer(email, name string, userID int) (string, error)
	// CreateSubscription returns the subscription id and the client secret
	// of its first payment
	CreateSubscription(customerID, priceID string, userID int) (string, string, error)
	CancelSubscription(subscriptionID string) error
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type stripeGateway struct {
	webhookSecret string
}

// NewStripeGateway sets the global Stripe key and returns a live gateway
func NewStripeGateway(secretKey, webhookSecret string) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{webhookSecret: webhookSecret}
}

func (g *stripeGateway) CreateCustomer(email, name string, userID int) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(userID),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return cust.ID, nil
}

func (g *stripeGateway) CreateSubscription(customerID, priceID string, userID int) (string, string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(userID),
		},
	}
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := stripesubscription.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create subscription: %w", err)
	}

	clientSecret := ""
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		clientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return sub.ID, clientSecret, nil
}

func (g *stripeGateway) CancelSubscription(subscriptionID string) error {
	if _, err := stripesubscription.Cancel(subscriptionID, nil); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

func (g *stripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, g.webhookSecret)
}
