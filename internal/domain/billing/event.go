package billing

import "time"

// Gateway event types handled by the reconciler
const (
	TypeCheckoutCompleted    = "checkout.session.completed"
	TypeSubscriptionCreated  = "customer.subscription.created"
	TypeSubscriptionUpdated  = "customer.subscription.updated"
	TypeSubscriptionDeleted  = "customer.subscription.deleted"
	TypePaymentIntentSucceed = "payment_intent.succeeded"
)

// KindOneTime is the payment intent metadata kind that marks a one-time grant
const KindOneTime = "pwyw"

// Metadata keys written on gateway objects
const (
	MetadataUserID = "userId"
	MetadataPlan   = "plan"
	MetadataKind   = "kind"
)

// Envelope identifies a gateway event
type Envelope struct {
	ID      string
	Type    string
	Created time.Time
}

// Event is a verified, decoded gateway event. The set of variants is closed.
type Event interface {
	Meta() Envelope
	isEvent()
}

// CheckoutCompleted is sent when a hosted checkout session finishes
type CheckoutCompleted struct {
	Envelope
	// UserID comes from the session's client reference or metadata
	UserID     string
	CustomerID string
	PlanHint   string
}

// SubscriptionChanged is sent when a subscription is created or updated
type SubscriptionChanged struct {
	Envelope
	CustomerID string
	Status     string
	// CurrentPeriodEnd is epoch seconds, nil when the gateway sent none
	CurrentPeriodEnd *int64
}

// SubscriptionCanceled is sent when a subscription is deleted
type SubscriptionCanceled struct {
	Envelope
	CustomerID string
}

// PaymentSucceeded is sent when a payment intent succeeds
type PaymentSucceeded struct {
	Envelope
	CustomerID     string
	Metadata       map[string]string
	AmountReceived *int64
	Amount         *int64
}

func (e CheckoutCompleted) Meta() Envelope    { return e.Envelope }
func (e SubscriptionChanged) Meta() Envelope  { return e.Envelope }
func (e SubscriptionCanceled) Meta() Envelope { return e.Envelope }
func (e PaymentSucceeded) Meta() Envelope     { return e.Envelope }

func (CheckoutCompleted) isEvent()    {}
func (SubscriptionChanged) isEvent()  {}
func (SubscriptionCanceled) isEvent() {}
func (PaymentSucceeded) isEvent()     {}

// CustomerOf returns the processor customer id an event refers to
func CustomerOf(e Event) string {
	switch ev := e.(type) {
	case CheckoutCompleted:
		return ev.CustomerID
	case SubscriptionChanged:
		return ev.CustomerID
	case SubscriptionCanceled:
		return ev.CustomerID
	case PaymentSucceeded:
		return ev.CustomerID
	}
	return ""
}

// ChargedAmount is the amount received, else the amount authorized, else 0
func (e PaymentSucceeded) ChargedAmount() int64 {
	if e.AmountReceived != nil {
		return *e.AmountReceived
	}
	if e.Amount != nil {
		return *e.Amount
	}
	return 0
}
