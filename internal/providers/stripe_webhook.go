package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
)

// ParseWebhook verifies the Stripe-Signature header against the raw payload
// and decodes the event into one of the billing event variants
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	if g.webhookSecret == "" || strings.TrimSpace(signature) == "" {
		return nil, billing.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.logger.Debugf("stripe signature verification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidSignature, err)
	}

	return decodeEvent(&event)
}

// decodeEvent converts a verified Stripe event into a billing event
func decodeEvent(event *stripe.Event) (billing.Event, error) {
	env := billing.Envelope{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Created > 0 {
		env.Created = time.Unix(event.Created, 0).UTC()
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch env.Type {
	case billing.TypeCheckoutCompleted:
		var s checkoutSessionObject
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode checkout.session: %w", billing.ErrMalformedEvent, err)
		}
		userID := s.Metadata[billing.MetadataUserID]
		if userID == "" {
			userID = s.ClientReferenceID
		}
		return billing.CheckoutCompleted{
			Envelope:   env,
			UserID:     userID,
			CustomerID: s.Customer.ID,
			PlanHint:   s.Metadata[billing.MetadataPlan],
		}, nil

	case billing.TypeSubscriptionCreated, billing.TypeSubscriptionUpdated:
		var s subscriptionObject
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %w", billing.ErrMalformedEvent, err)
		}
		return billing.SubscriptionChanged{
			Envelope:         env,
			CustomerID:       s.Customer.ID,
			Status:           s.Status,
			CurrentPeriodEnd: s.periodEnd(),
		}, nil

	case billing.TypeSubscriptionDeleted:
		var s subscriptionObject
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %w", billing.ErrMalformedEvent, err)
		}
		return billing.SubscriptionCanceled{
			Envelope:   env,
			CustomerID: s.Customer.ID,
		}, nil

	case billing.TypePaymentIntentSucceed:
		var pi paymentIntentObject
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: decode payment_intent: %w", billing.ErrMalformedEvent, err)
		}
		return billing.PaymentSucceeded{
			Envelope:       env,
			CustomerID:     pi.Customer.ID,
			Metadata:       pi.Metadata,
			AmountReceived: pi.AmountReceived,
			Amount:         pi.Amount,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", billing.ErrUnsupportedEvent, env.Type)
}

// expandableID holds the id of a field Stripe sends either as a string or
// as an expanded object
type expandableID struct {
	ID string
}

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		e.ID = ""
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.ID = obj.ID
	return nil
}

type checkoutSessionObject struct {
	ID                string            `json:"id"`
	Customer          expandableID      `json:"customer"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type subscriptionObject struct {
	ID       string       `json:"id"`
	Customer expandableID `json:"customer"`
	Status   string       `json:"status"`
	// Older API versions carry the period on the subscription itself
	CurrentPeriodEnd *int64 `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd *int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

func (s *subscriptionObject) periodEnd() *int64 {
	if s.CurrentPeriodEnd != nil && *s.CurrentPeriodEnd > 0 {
		return s.CurrentPeriodEnd
	}
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd != nil && *item.CurrentPeriodEnd > 0 {
			return item.CurrentPeriodEnd
		}
	}
	return nil
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	Customer       expandableID      `json:"customer"`
	Metadata       map[string]string `json:"metadata"`
	Amount         *int64            `json:"amount"`
	AmountReceived *int64            `json:"amount_received"`
}
