package user

import "time"

// Field is one column of a partial update. The zero value leaves the column
// untouched; Set with a nil Value writes NULL.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Value returns a Field that writes v
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null returns a Field that clears the column
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

// Ptr returns a Field that writes *v, or NULL when v is nil
func Ptr[T any](v *T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// EntitlementPatch is a partial overwrite of a user's entitlement columns
type EntitlementPatch struct {
	ProcessorCustomerID Field[string]
	Plan                Field[Plan]
	SubscriptionStatus  Field[string]
	CurrentPeriodEnd    Field[time.Time]
	OneTimeAmount       Field[int64]
	OneTimeGrantedAt    Field[time.Time]
	EventAt             Field[time.Time]
}

// Empty reports whether the patch changes nothing
func (p EntitlementPatch) Empty() bool {
	return !p.ProcessorCustomerID.Set && !p.Plan.Set && !p.SubscriptionStatus.Set &&
		!p.CurrentPeriodEnd.Set && !p.OneTimeAmount.Set && !p.OneTimeGrantedAt.Set && !p.EventAt.Set
}

// Apply writes the patch onto e. Repositories without SQL (tests, caches) use
// it to mirror the UPDATE statement.
func (p EntitlementPatch) Apply(e *Entitlement) {
	applyField(p.ProcessorCustomerID, &e.ProcessorCustomerID)
	if p.Plan.Set {
		if p.Plan.Value != nil {
			e.Plan = *p.Plan.Value
		} else {
			e.Plan = PlanFree
		}
	}
	applyField(p.SubscriptionStatus, &e.SubscriptionStatus)
	applyField(p.CurrentPeriodEnd, &e.CurrentPeriodEnd)
	applyField(p.OneTimeAmount, &e.OneTimeAmount)
	applyField(p.OneTimeGrantedAt, &e.OneTimeGrantedAt)
	applyField(p.EventAt, &e.EventAt)
}

func applyField[T any](f Field[T], dst **T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	v := *f.Value
	*dst = &v
}
