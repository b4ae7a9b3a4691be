package providers

import (
	"context"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
)

// DisabledGateway is the gateway used when payments are turned off. Every
// call fails with billing.ErrPaymentsDisabled without touching the network.
type DisabledGateway struct{}

var _ billing.Gateway = DisabledGateway{}

func (DisabledGateway) CreateCustomer(context.Context, billing.CustomerParams) (string, error) {
	return "", billing.ErrPaymentsDisabled
}

func (DisabledGateway) RetrieveCustomer(context.Context, string) (*billing.Customer, error) {
	return nil, billing.ErrPaymentsDisabled
}

func (DisabledGateway) CreateCheckoutSession(context.Context, billing.CheckoutParams) (*billing.CheckoutSession, error) {
	return nil, billing.ErrPaymentsDisabled
}

func (DisabledGateway) CreatePaymentIntent(context.Context, billing.PaymentIntentParams) (*billing.PaymentIntent, error) {
	return nil, billing.ErrPaymentsDisabled
}

func (DisabledGateway) CreatePortalSession(context.Context, string, string) (*billing.PortalSession, error) {
	return nil, billing.ErrPaymentsDisabled
}

func (DisabledGateway) ListSubscriptions(context.Context, string, string) ([]billing.Subscription, error) {
	return nil, billing.ErrPaymentsDisabled
}

func (DisabledGateway) ParseWebhook([]byte, string) (billing.Event, error) {
	return nil, billing.ErrPaymentsDisabled
}

// NewGateway returns the Stripe gateway when payments are enabled and the
// disabled gateway otherwise
func NewGateway(cfg config.BillingConfig, log *logger.Logger) billing.Gateway {
	if !cfg.PaymentsEnabled {
		return DisabledGateway{}
	}
	return NewStripeGateway(cfg, log)
}
