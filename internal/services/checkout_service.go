package services

import (
	"context"
	"strings"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
)

// Billing intervals accepted by StartSubscriptionCheckout
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Plan names reported by SubscriptionStatus
const (
	PlanNameMonthly = "pro_monthly"
	PlanNameYearly  = "pro_yearly"
)

var _ billing.CheckoutService = (*CheckoutService)(nil)

// CheckoutService implements billing.CheckoutService
type CheckoutService struct {
	users      user.Repository
	gateway    billing.Gateway
	customers  billing.CustomerResolver
	reconciler billing.Reconciler
	cfg        config.BillingConfig
	logger     *logger.Logger
}

// NewCheckoutService creates the purchase flow service
func NewCheckoutService(
	users user.Repository,
	gateway billing.Gateway,
	customers billing.CustomerResolver,
	reconciler billing.Reconciler,
	cfg config.BillingConfig,
	log *logger.Logger,
) *CheckoutService {
	return &CheckoutService{
		users:      users,
		gateway:    gateway,
		customers:  customers,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     log,
	}
}

// StartSubscriptionCheckout creates a hosted checkout session and returns its URL
func (s *CheckoutService) StartSubscriptionCheckout(ctx context.Context, userID, interval, baseURL string) (string, error) {
	if !s.cfg.PaymentsEnabled {
		return "", errors.PaymentsDisabled()
	}

	if interval == "" {
		interval = IntervalMonth
	}
	if interval != IntervalMonth && interval != IntervalYear {
		return "", errors.BadRequest("interval must be month or year")
	}

	priceID := s.cfg.PriceID(interval)
	if priceID == "" {
		return "", errors.ConfigurationError("Pro plan price is not configured")
	}

	customerID, err := s.customers.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	base := strings.TrimRight(baseURL, "/")
	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: base + "/billing/success",
		CancelURL:  base + "/billing/cancel",
		Metadata: map[string]string{
			billing.MetadataUserID: userID,
			billing.MetadataPlan:   string(user.PlanSubscription),
		},
	})
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":  userID,
			"interval": interval,
		}).ErrorWithErr(err, "Failed to create checkout session")
		return "", gatewayError(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": session.ID,
		"interval":   interval,
	}).Info("Checkout session created")

	return session.URL, nil
}

// StartOneTimePayment grants a zero amount immediately and otherwise creates
// a payment intent for the client to confirm
func (s *CheckoutService) StartOneTimePayment(ctx context.Context, userID string, amount int64) (*billing.OneTimeResult, error) {
	if amount < 0 {
		return nil, errors.ValidationError("Invalid amount", map[string]string{"amountCents": "must be >= 0"})
	}

	if amount == 0 {
		if _, err := s.reconciler.GrantZeroAmount(ctx, userID); err != nil {
			return nil, err
		}
		return &billing.OneTimeResult{Granted: true}, nil
	}

	if !s.cfg.PaymentsEnabled {
		return nil, errors.PaymentsDisabled()
	}

	customerID, err := s.customers.EnsureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, billing.PaymentIntentParams{
		Amount:      amount,
		Currency:    s.cfg.Currency,
		CustomerID:  customerID,
		Description: s.cfg.OneTimeDescription,
		Metadata: map[string]string{
			billing.MetadataUserID: userID,
			billing.MetadataKind:   billing.KindOneTime,
		},
	})
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"amount":  amount,
		}).ErrorWithErr(err, "Failed to create payment intent")
		return nil, gatewayError(err)
	}

	return &billing.OneTimeResult{ClientSecret: intent.ClientSecret}, nil
}

// OpenBillingPortal returns a customer portal URL for managing the subscription
func (s *CheckoutService) OpenBillingPortal(ctx context.Context, userID, returnURL string) (string, error) {
	if !s.cfg.PaymentsEnabled {
		return "", errors.PaymentsDisabled()
	}

	customerID, err := s.customers.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	session, err := s.gateway.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).ErrorWithErr(err, "Failed to create billing portal session")
		return "", gatewayError(err)
	}
	return session.URL, nil
}

// SubscriptionStatus reports the user's active subscription from the gateway
func (s *CheckoutService) SubscriptionStatus(ctx context.Context, userID string) (*billing.SubscriptionState, error) {
	if !s.cfg.PaymentsEnabled {
		return &billing.SubscriptionState{}, nil
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CustomerID() == "" {
		return &billing.SubscriptionState{}, nil
	}

	subs, err := s.gateway.ListSubscriptions(ctx, u.CustomerID(), user.StatusActive)
	if err != nil {
		return nil, gatewayError(err)
	}
	if len(subs) == 0 {
		return &billing.SubscriptionState{}, nil
	}

	sub := subs[0]
	plan := PlanNameMonthly
	if s.cfg.YearlyPriceID != "" && sub.PriceID == s.cfg.YearlyPriceID {
		plan = PlanNameYearly
	}

	return &billing.SubscriptionState{
		Active:           true,
		Plan:             plan,
		CurrentPeriodEnd: unixPtr(sub.CurrentPeriodEnd),
	}, nil
}
