package dto

import (
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
)

// EntitlementDTO is the caller's billing state
type EntitlementDTO struct {
	UserID              string     `json:"userId"`
	Plan                string     `json:"plan"`
	HasPremium          bool       `json:"hasPremium"`
	ProcessorCustomerID *string    `json:"processorCustomerId,omitempty"`
	SubscriptionStatus  *string    `json:"subscriptionStatus"`
	CurrentPeriodEnd    *time.Time `json:"currentPeriodEnd"`
	OneTimeAmountCents  *int64     `json:"oneTimeAmountCents"`
	OneTimeGrantedAt    *time.Time `json:"oneTimeGrantedAt"`
}

// NewEntitlementDTO converts a user record to its entitlement view
func NewEntitlementDTO(u *user.User) EntitlementDTO {
	return EntitlementDTO{
		UserID:              u.ID,
		Plan:                string(u.Plan),
		HasPremium:          user.HasPremium(u),
		ProcessorCustomerID: u.ProcessorCustomerID,
		SubscriptionStatus:  u.SubscriptionStatus,
		CurrentPeriodEnd:    u.CurrentPeriodEnd,
		OneTimeAmountCents:  u.OneTimeAmount,
		OneTimeGrantedAt:    u.OneTimeGrantedAt,
	}
}

// CheckoutRequest starts a subscription checkout. Interval defaults to month.
type CheckoutRequest struct {
	Interval string `json:"interval" validate:"omitempty,oneof=month year"`
}

// URLResponse carries a gateway-hosted page the client should open
type URLResponse struct {
	URL string `json:"url"`
}

// OneTimeIntentRequest starts a pay-what-you-want payment
type OneTimeIntentRequest struct {
	AmountCents *int64 `json:"amountCents" validate:"required,gte=0"`
}

// OneTimeIntentResponse returns the client secret, or granted=true for a zero amount
type OneTimeIntentResponse struct {
	ClientSecret *string `json:"clientSecret"`
	Granted      bool    `json:"granted"`
}

// NewOneTimeIntentResponse converts a service result
func NewOneTimeIntentResponse(res *billing.OneTimeResult) OneTimeIntentResponse {
	out := OneTimeIntentResponse{Granted: res.Granted}
	if res.ClientSecret != "" {
		secret := res.ClientSecret
		out.ClientSecret = &secret
	}
	return out
}

// OneTimeCompleteRequest records a payment the client already confirmed.
// A missing or negative amount is recorded as 0.
type OneTimeCompleteRequest struct {
	AmountCents int64 `json:"amountCents"`
}

// OKResponse acknowledges a write
type OKResponse struct {
	OK bool `json:"ok"`
}

// PortalRequest opens the customer billing portal
type PortalRequest struct {
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
}

// WebhookAck is returned to the payment gateway for every accepted delivery
type WebhookAck struct {
	Received bool `json:"received"`
}

// PremiumAccessDTO is returned by the premium-gated access check endpoint
type PremiumAccessDTO struct {
	Access bool   `json:"access"`
	Plan   string `json:"plan"`
}
