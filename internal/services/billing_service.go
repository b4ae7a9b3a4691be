package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/metrics"
)

// Entitlement write sources, used as metric labels
const (
	sourceWebhook = "webhook"
	sourceDirect  = "direct"
)

var _ billing.Reconciler = (*BillingService)(nil)

// BillingService implements billing.Reconciler
type BillingService struct {
	users  user.Repository
	cfg    config.BillingConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewBillingService creates the entitlement reconciler
func NewBillingService(users user.Repository, cfg config.BillingConfig, log *logger.Logger) *BillingService {
	return &BillingService{
		users:  users,
		cfg:    cfg,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IsPremium reports whether the user currently has premium access
func IsPremium(u *user.User) bool {
	return user.HasPremium(u)
}

// IsOneTimeKind reports whether payment metadata marks a one-time grant
func IsOneTimeKind(kind string) bool {
	return kind == billing.KindOneTime || kind == "one-time"
}

// Apply dispatches a decoded gateway event to its handler
func (s *BillingService) Apply(ctx context.Context, event billing.Event) (billing.Outcome, error) {
	switch ev := event.(type) {
	case billing.CheckoutCompleted:
		return s.ApplyCheckoutCompleted(ctx, ev)
	case billing.SubscriptionChanged:
		return s.ApplySubscriptionChanged(ctx, ev)
	case billing.SubscriptionCanceled:
		return s.ApplySubscriptionCanceled(ctx, ev)
	case billing.PaymentSucceeded:
		return s.ApplyPaymentSucceeded(ctx, ev)
	default:
		return billing.Outcome{}, fmt.Errorf("%w: %T", billing.ErrUnsupportedEvent, event)
	}
}

// ApplyCheckoutCompleted moves the resolved user onto the subscription plan
func (s *BillingService) ApplyCheckoutCompleted(ctx context.Context, ev billing.CheckoutCompleted) (billing.Outcome, error) {
	u, byUserID, err := s.resolve(ctx, ev.UserID, ev.CustomerID)
	if err != nil || u == nil {
		return s.unresolved(ev, err)
	}

	patch := user.EntitlementPatch{
		Plan:               user.Value(user.PlanSubscription),
		SubscriptionStatus: user.Value(user.StatusActive),
		OneTimeAmount:      user.Null[int64](),
		OneTimeGrantedAt:   user.Null[time.Time](),
	}
	if byUserID && ev.CustomerID != "" {
		patch.ProcessorCustomerID = user.Value(ev.CustomerID)
	}

	return s.write(ctx, ev, u, patch)
}

// ApplySubscriptionChanged mirrors a subscription's status onto the plan
func (s *BillingService) ApplySubscriptionChanged(ctx context.Context, ev billing.SubscriptionChanged) (billing.Outcome, error) {
	u, _, err := s.resolve(ctx, "", ev.CustomerID)
	if err != nil || u == nil {
		return s.unresolved(ev, err)
	}

	patch := user.EntitlementPatch{
		Plan:               user.Value(user.PlanForSubscriptionStatus(ev.Status)),
		SubscriptionStatus: user.Value(ev.Status),
		CurrentPeriodEnd:   user.Null[time.Time](),
	}
	if ev.CurrentPeriodEnd != nil {
		patch.CurrentPeriodEnd = user.Value(time.Unix(*ev.CurrentPeriodEnd, 0).UTC())
	}

	return s.write(ctx, ev, u, patch)
}

// ApplySubscriptionCanceled demotes the resolved user to free
func (s *BillingService) ApplySubscriptionCanceled(ctx context.Context, ev billing.SubscriptionCanceled) (billing.Outcome, error) {
	u, _, err := s.resolve(ctx, "", ev.CustomerID)
	if err != nil || u == nil {
		return s.unresolved(ev, err)
	}

	return s.write(ctx, ev, u, user.EntitlementPatch{
		Plan:               user.Value(user.PlanFree),
		SubscriptionStatus: user.Value(user.StatusCanceled),
		CurrentPeriodEnd:   user.Null[time.Time](),
	})
}

// ApplyPaymentSucceeded grants the one-time plan for payments marked as such
func (s *BillingService) ApplyPaymentSucceeded(ctx context.Context, ev billing.PaymentSucceeded) (billing.Outcome, error) {
	if !IsOneTimeKind(ev.Metadata[billing.MetadataKind]) || ev.CustomerID == "" {
		metrics.RecordReconcileOutcome(ev.Type, billing.OutcomeIgnored)
		s.logger.WithFields(map[string]interface{}{
			"event_id":    ev.ID,
			"customer_id": ev.CustomerID,
		}).Debug("Payment is not a one-time grant, ignoring")
		return billing.Outcome{Ignored: true}, nil
	}

	u, _, err := s.resolve(ctx, "", ev.CustomerID)
	if err != nil || u == nil {
		return s.unresolved(ev, err)
	}

	return s.write(ctx, ev, u, oneTimePatch(ev.ChargedAmount(), s.now()))
}

// GrantZeroAmount gives the user a free one-time grant without the gateway
func (s *BillingService) GrantZeroAmount(ctx context.Context, userID string) (*user.User, error) {
	return s.grantDirect(ctx, userID, 0)
}

// ConfirmOneTimeClientSide records a one-time payment the client confirmed
// with the gateway before the webhook arrived
func (s *BillingService) ConfirmOneTimeClientSide(ctx context.Context, userID string, amount int64) (*user.User, error) {
	if amount < 0 {
		amount = 0
	}
	return s.grantDirect(ctx, userID, amount)
}

func (s *BillingService) grantDirect(ctx context.Context, userID string, amount int64) (*user.User, error) {
	u, err := s.users.UpdateEntitlement(ctx, userID, oneTimePatch(amount, s.now()))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.ErrorWithErr(err, "Failed to grant one-time plan")
		return nil, errors.ReconciliationFailed(err)
	}

	metrics.RecordEntitlementTransition(sourceDirect, string(u.Plan))
	s.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"amount":      amount,
		"plan":        u.Plan,
		"transition":  "one_time_grant",
		"gateway_hit": false,
	}).Info("One-time plan granted")

	return u, nil
}

func oneTimePatch(amount int64, at time.Time) user.EntitlementPatch {
	return user.EntitlementPatch{
		Plan:               user.Value(user.PlanOneTime),
		SubscriptionStatus: user.Null[string](),
		OneTimeAmount:      user.Value(amount),
		OneTimeGrantedAt:   user.Value(at),
	}
}

// resolve finds the target user by user id first, then by customer id. A
// miss returns a nil user and no error.
func (s *BillingService) resolve(ctx context.Context, userID, customerID string) (*user.User, bool, error) {
	if userID != "" {
		u, err := s.users.GetByID(ctx, userID)
		if err == nil {
			return u, true, nil
		}
		if !errors.IsNotFound(err) {
			return nil, false, err
		}
	}

	if customerID != "" {
		u, err := s.users.GetByProcessorCustomerID(ctx, customerID)
		if err == nil {
			return u, false, nil
		}
		if !errors.IsNotFound(err) {
			return nil, false, err
		}
	}

	return nil, false, nil
}

func (s *BillingService) unresolved(ev billing.Event, err error) (billing.Outcome, error) {
	meta := ev.Meta()
	if err != nil {
		metrics.RecordReconcileOutcome(meta.Type, billing.OutcomeFailed)
		s.logger.ErrorWithErr(err, "Failed to resolve billing event user")
		return billing.Outcome{}, errors.ReconciliationFailed(err)
	}

	metrics.RecordReconcileOutcome(meta.Type, billing.OutcomeUnresolved)
	s.logger.WithFields(map[string]interface{}{
		"event_id":    meta.ID,
		"event_type":  meta.Type,
		"customer_id": billing.CustomerOf(ev),
	}).Warn("Billing event matches no user, skipping")

	return billing.Outcome{Resolved: false}, nil
}

// write applies patch for a gateway event, honouring the order guard
func (s *BillingService) write(ctx context.Context, ev billing.Event, u *user.User, patch user.EntitlementPatch) (billing.Outcome, error) {
	meta := ev.Meta()
	outcome := billing.Outcome{Resolved: true, UserID: u.ID, Plan: u.Plan}

	if s.isStale(u, meta) {
		metrics.RecordReconcileOutcome(meta.Type, billing.OutcomeStale)
		s.logger.WithFields(map[string]interface{}{
			"event_id":      meta.ID,
			"event_type":    meta.Type,
			"user_id":       u.ID,
			"event_created": meta.Created,
			"stored_at":     u.EventAt,
		}).Info("Billing event older than stored entitlement, skipping")
		outcome.Stale = true
		return outcome, nil
	}

	if !meta.Created.IsZero() {
		patch.EventAt = user.Value(meta.Created.UTC())
	}

	updated, err := s.users.UpdateEntitlement(ctx, u.ID, patch)
	if err != nil && patch.ProcessorCustomerID.Set && errors.IsCode(err, errors.ErrCodeConflict) {
		// The customer belongs to another user; grant the plan without the link
		s.logger.WithFields(map[string]interface{}{
			"event_id":    meta.ID,
			"user_id":     u.ID,
			"customer_id": billing.CustomerOf(ev),
		}).Warn("Processor customer already linked to another user, skipping link")
		patch.ProcessorCustomerID = user.Field[string]{}
		updated, err = s.users.UpdateEntitlement(ctx, u.ID, patch)
	}
	if err != nil {
		metrics.RecordReconcileOutcome(meta.Type, billing.OutcomeFailed)
		s.logger.WithFields(map[string]interface{}{
			"event_id": meta.ID,
			"user_id":  u.ID,
		}).ErrorWithErr(err, "Failed to persist entitlement")
		return billing.Outcome{}, errors.ReconciliationFailed(err)
	}

	metrics.RecordReconcileOutcome(meta.Type, billing.OutcomeApplied)
	metrics.RecordEntitlementTransition(sourceWebhook, string(updated.Plan))
	s.logger.WithFields(map[string]interface{}{
		"event_id":   meta.ID,
		"event_type": meta.Type,
		"user_id":    u.ID,
		"from_plan":  u.Plan,
		"to_plan":    updated.Plan,
	}).Info("Entitlement reconciled")

	outcome.Plan = updated.Plan
	return outcome, nil
}

func (s *BillingService) isStale(u *user.User, meta billing.Envelope) bool {
	if !s.cfg.EnforceEventOrder || meta.Created.IsZero() || u.EventAt == nil {
		return false
	}
	return meta.Created.Before(*u.EventAt)
}
