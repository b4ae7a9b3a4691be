package client

import "time"

// HealthResponse is returned by the liveness endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Payments bool   `json:"payments"`
}

// User is a jobtrail user profile
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
}

// SyncUserRequest refreshes the caller's profile
type SyncUserRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Entitlement is the caller's billing state
type Entitlement struct {
	UserID              string     `json:"userId"`
	Plan                string     `json:"plan"`
	HasPremium          bool       `json:"hasPremium"`
	ProcessorCustomerID *string    `json:"processorCustomerId,omitempty"`
	SubscriptionStatus  *string    `json:"subscriptionStatus"`
	CurrentPeriodEnd    *time.Time `json:"currentPeriodEnd"`
	OneTimeAmountCents  *int64     `json:"oneTimeAmountCents"`
	OneTimeGrantedAt    *time.Time `json:"oneTimeGrantedAt"`
}

// SubscriptionStatus is the subscription as reported by the payment gateway
type SubscriptionStatus struct {
	Active           bool   `json:"active"`
	Plan             string `json:"plan,omitempty"`
	CurrentPeriodEnd *int64 `json:"currentPeriodEnd,omitempty"`
}

// OneTimeIntent is the result of starting a pay-what-you-want payment
type OneTimeIntent struct {
	ClientSecret *string `json:"clientSecret"`
	Granted      bool    `json:"granted"`
}
