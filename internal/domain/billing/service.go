package billing

import (
	"context"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
)

// Outcome describes what reconciling one event did
type Outcome struct {
	// Resolved is false when no user matched the event
	Resolved bool
	// Stale is true when the event was older than the stored entitlement
	Stale bool
	// Ignored is true when the event carries nothing to reconcile
	Ignored bool
	UserID  string
	Plan    user.Plan
}

// Reconciler maps gateway events and direct user actions to entitlement writes
type Reconciler interface {
	Apply(ctx context.Context, event Event) (Outcome, error)
	ApplyCheckoutCompleted(ctx context.Context, event CheckoutCompleted) (Outcome, error)
	ApplySubscriptionChanged(ctx context.Context, event SubscriptionChanged) (Outcome, error)
	ApplySubscriptionCanceled(ctx context.Context, event SubscriptionCanceled) (Outcome, error)
	ApplyPaymentSucceeded(ctx context.Context, event PaymentSucceeded) (Outcome, error)
	GrantZeroAmount(ctx context.Context, userID string) (*user.User, error)
	ConfirmOneTimeClientSide(ctx context.Context, userID string, amount int64) (*user.User, error)
}

// CustomerResolver guarantees a user has a live gateway customer
type CustomerResolver interface {
	EnsureCustomer(ctx context.Context, userID string) (string, error)
}

// SubscriptionState is the caller's current subscription as reported by the gateway
type SubscriptionState struct {
	Active           bool   `json:"active"`
	Plan             string `json:"plan,omitempty"`
	CurrentPeriodEnd *int64 `json:"currentPeriodEnd,omitempty"`
}

// OneTimeResult is the outcome of starting a one-time payment
type OneTimeResult struct {
	ClientSecret string `json:"clientSecret,omitempty"`
	Granted      bool   `json:"granted"`
}

// CheckoutService runs the user-facing purchase flows
type CheckoutService interface {
	StartSubscriptionCheckout(ctx context.Context, userID, interval, baseURL string) (string, error)
	StartOneTimePayment(ctx context.Context, userID string, amount int64) (*OneTimeResult, error)
	OpenBillingPortal(ctx context.Context, userID, returnURL string) (string, error)
	SubscriptionStatus(ctx context.Context, userID string) (*SubscriptionState, error)
}
