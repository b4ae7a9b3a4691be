package providers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/metrics"
)

// StripeGateway implements billing.Gateway on the Stripe API
type StripeGateway struct {
	customers     customer.Client
	checkouts     checkoutsession.Client
	intents       paymentintent.Client
	portals       portalsession.Client
	subscriptions subscription.Client

	webhookSecret string
	logger        *logger.Logger
}

// StripeOption customizes a StripeGateway
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backend stripe.Backend
}

// WithBackend routes API calls through b instead of the default Stripe API backend
func WithBackend(b stripe.Backend) StripeOption {
	return func(o *stripeOptions) {
		o.backend = b
	}
}

// NewStripeGateway creates a gateway using the configured secret key. The key
// is held per client; the package-level stripe.Key is never set.
func NewStripeGateway(cfg config.BillingConfig, log *logger.Logger, opts ...StripeOption) *StripeGateway {
	o := stripeOptions{backend: stripe.GetBackend(stripe.APIBackend)}
	for _, opt := range opts {
		opt(&o)
	}

	key := strings.TrimSpace(cfg.SecretKey)
	return &StripeGateway{
		customers:     customer.Client{B: o.backend, Key: key},
		checkouts:     checkoutsession.Client{B: o.backend, Key: key},
		intents:       paymentintent.Client{B: o.backend, Key: key},
		portals:       portalsession.Client{B: o.backend, Key: key},
		subscriptions: subscription.Client{B: o.backend, Key: key},
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        log,
	}
}

var _ billing.Gateway = (*StripeGateway)(nil)

// CreateCustomer creates a Stripe customer
func (g *StripeGateway) CreateCustomer(ctx context.Context, p billing.CustomerParams) (string, error) {
	start := time.Now()
	params := &stripe.CustomerParams{
		Email:    optional(p.Email),
		Name:     optional(p.Name),
		Metadata: p.Metadata,
	}
	params.Context = ctx

	c, err := g.customers.New(params)
	metrics.RecordGatewayCall("create_customer", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// RetrieveCustomer fetches a customer; a missing customer is ErrCustomerNotFound
func (g *StripeGateway) RetrieveCustomer(ctx context.Context, id string) (*billing.Customer, error) {
	start := time.Now()
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.customers.Get(id, params)
	metrics.RecordGatewayCall("retrieve_customer", err, time.Since(start))
	if err != nil {
		if isResourceMissing(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, err
	}
	return &billing.Customer{ID: c.ID, Deleted: c.Deleted}, nil
}

// CreateCheckoutSession creates a subscription mode hosted checkout session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	start := time.Now()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: p.Metadata,
	}
	if userID := p.Metadata[billing.MetadataUserID]; userID != "" {
		params.ClientReferenceID = stripe.String(userID)
	}
	params.Context = ctx

	s, err := g.checkouts.New(params)
	metrics.RecordGatewayCall("create_checkout_session", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &billing.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CreatePaymentIntent creates a payment intent with automatic payment methods
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, p billing.PaymentIntentParams) (*billing.PaymentIntent, error) {
	start := time.Now()
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(p.Amount),
		Currency:    stripe.String(p.Currency),
		Customer:    stripe.String(p.CustomerID),
		Description: optional(p.Description),
		Metadata:    p.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := g.intents.New(params)
	metrics.RecordGatewayCall("create_payment_intent", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &billing.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreatePortalSession creates a billing portal session for a customer
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*billing.PortalSession, error) {
	start := time.Now()
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: optional(returnURL),
	}
	params.Context = ctx

	s, err := g.portals.New(params)
	metrics.RecordGatewayCall("create_portal_session", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &billing.PortalSession{URL: s.URL}, nil
}

// ListSubscriptions lists a customer's subscriptions with the given status
func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID, status string) ([]billing.Subscription, error) {
	start := time.Now()
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
	}
	if status == "" {
		status = "all"
	}
	params.Status = stripe.String(status)
	params.Context = ctx

	var subs []billing.Subscription
	iter := g.subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, toSubscription(iter.Subscription()))
	}
	err := iter.Err()
	metrics.RecordGatewayCall("list_subscriptions", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func toSubscription(s *stripe.Subscription) billing.Subscription {
	out := billing.Subscription{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item == nil {
				continue
			}
			if item.Price != nil && out.PriceID == "" {
				out.PriceID = item.Price.ID
			}
			if item.CurrentPeriodEnd > 0 && out.CurrentPeriodEnd == nil {
				end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
				out.CurrentPeriodEnd = &end
			}
		}
	}
	return out
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if !stderrors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}
