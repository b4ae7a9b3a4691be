package user

import "time"

// Plan is the coarse entitlement tier assigned to a user
type Plan string

// Plans. The string values are what the API and the database carry.
const (
	PlanFree         Plan = "free"
	PlanSubscription Plan = "pro"
	PlanOneTime      Plan = "pwyw"
)

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanSubscription, PlanOneTime:
		return true
	}
	return false
}

// Subscription statuses this service reasons about. Any other gateway status
// (past_due, unpaid, incomplete, ...) is stored verbatim.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusCanceled = "canceled"
)

// User represents a user in the system. Only the entitlement columns are
// owned by billing; the profile columns are written on signup/sync.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Entitlement
}

// Entitlement is the billing state of a user
type Entitlement struct {
	ProcessorCustomerID *string    `json:"processorCustomerId,omitempty"`
	Plan                Plan       `json:"plan"`
	SubscriptionStatus  *string    `json:"subscriptionStatus"`
	CurrentPeriodEnd    *time.Time `json:"currentPeriodEnd"`
	OneTimeAmount       *int64     `json:"oneTimeAmountCents"`
	OneTimeGrantedAt    *time.Time `json:"oneTimeGrantedAt"`
	// EventAt is the gateway timestamp of the last event applied
	EventAt *time.Time `json:"-"`
}

// DisplayName joins first and last name
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// CustomerID returns the stored processor customer id or ""
func (u *User) CustomerID() string {
	if u == nil || u.ProcessorCustomerID == nil {
		return ""
	}
	return *u.ProcessorCustomerID
}

// HasPremium reports whether the user has premium access. It is derived from
// the plan and never stored.
func HasPremium(u *User) bool {
	if u == nil {
		return false
	}
	return u.Plan == PlanSubscription || u.Plan == PlanOneTime
}

// PlanForSubscriptionStatus maps a raw gateway subscription status to a plan
func PlanForSubscriptionStatus(status string) Plan {
	if status == StatusActive || status == StatusTrialing {
		return PlanSubscription
	}
	return PlanFree
}
