package billing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidSignature means the webhook signature did not verify
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnsupportedEvent means the event verified but is not one we reconcile
	ErrUnsupportedEvent = errors.New("unsupported event type")
	// ErrMalformedEvent means the event verified but its object did not decode
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrCustomerNotFound means the gateway has no such customer
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrPaymentsDisabled is returned by every gateway call when payments are off
	ErrPaymentsDisabled = errors.New("payments disabled")
)

// CustomerParams describes a customer to create
type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// Customer is a gateway customer
type Customer struct {
	ID      string
	Deleted bool
}

// CheckoutParams describes a subscription checkout session
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is a created hosted checkout session
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentIntentParams describes a one-time payment
type PaymentIntentParams struct {
	Amount      int64
	Currency    string
	CustomerID  string
	Description string
	Metadata    map[string]string
}

// PaymentIntent is a created payment intent
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PortalSession is a created billing portal session
type PortalSession struct {
	URL string
}

// Subscription is a gateway subscription as returned by a listing
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
}

// Gateway is the payment processor boundary
type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	RetrieveCustomer(ctx context.Context, id string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error)
	// ListSubscriptions lists a customer's subscriptions; status "" or "all" lists every status
	ListSubscriptions(ctx context.Context, customerID, status string) ([]Subscription, error)
	// ParseWebhook verifies the signature over the raw body and decodes the event
	ParseWebhook(payload []byte, signature string) (Event, error)
}
