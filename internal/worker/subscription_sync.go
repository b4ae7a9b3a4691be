package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/metrics"
)

const syncPageSize = 100

// SyncReport summarizes one resync pass
type SyncReport struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Canceled int `json:"canceled"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// SubscriptionSyncer periodically re-reads subscriptions from the gateway and
// feeds them through the reconciler to repair drift from missed or
// out-of-order webhooks
type SubscriptionSyncer struct {
	users      user.Repository
	gateway    billing.Gateway
	reconciler billing.Reconciler
	schedule   string
	logger     *logger.Logger
	now        func() time.Time

	mu sync.Mutex
}

// NewSubscriptionSyncer creates a new subscription resync worker
func NewSubscriptionSyncer(
	users user.Repository,
	gateway billing.Gateway,
	reconciler billing.Reconciler,
	schedule string,
	log *logger.Logger,
) *SubscriptionSyncer {
	return &SubscriptionSyncer{
		users:      users,
		gateway:    gateway,
		reconciler: reconciler,
		schedule:   strings.TrimSpace(schedule),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a schedule is configured
func (s *SubscriptionSyncer) Enabled() bool {
	return s.schedule != "" && !strings.EqualFold(s.schedule, "off")
}

// Start runs the resync job on its schedule until ctx is canceled
func (s *SubscriptionSyncer) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("Subscription sync worker disabled")
		return nil
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorWithErr(err, "Subscription sync pass failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}

	s.logger.Infof("Starting subscription sync worker (%s)", s.schedule)
	scheduler.Start()

	<-ctx.Done()
	stopped := scheduler.Stop()
	<-stopped.Done()
	s.logger.Info("Subscription sync worker stopped")
	return nil
}

// RunOnce performs a single pass over every user with a processor customer
func (s *SubscriptionSyncer) RunOnce(ctx context.Context) (*SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &SyncReport{}
	start := time.Now()

	for offset := 0; ; offset += syncPageSize {
		users, err := s.users.ListWithProcessorCustomer(ctx, syncPageSize, offset)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}

		for _, u := range users {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Checked++
			status, err := s.syncUser(ctx, u)
			if err != nil {
				report.Failed++
				status = "failed"
				s.logger.WithFields(map[string]interface{}{
					"user_id":     u.ID,
					"customer_id": u.CustomerID(),
				}).ErrorWithErr(err, "Failed to sync subscription")
			}
			switch status {
			case "updated":
				report.Updated++
			case "canceled":
				report.Canceled++
			case "skipped":
				report.Skipped++
			}
			metrics.RecordSubscriptionSync(status)
		}

		if len(users) < syncPageSize {
			break
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"checked":  report.Checked,
		"updated":  report.Updated,
		"canceled": report.Canceled,
		"failed":   report.Failed,
		"duration": time.Since(start).String(),
	}).Info("Subscription sync pass complete")

	return report, nil
}

func (s *SubscriptionSyncer) syncUser(ctx context.Context, u *user.User) (string, error) {
	// Stamped before listing so a webhook stored meanwhile stays newer
	listedAt := s.now()
	subs, err := s.gateway.ListSubscriptions(ctx, u.CustomerID(), "all")
	if err != nil {
		return "", err
	}

	env := billing.Envelope{ID: "sync_" + u.ID, Created: listedAt}

	sub, ok := pickSubscription(subs)
	if !ok {
		if u.Plan != user.PlanSubscription {
			return "skipped", nil
		}
		env.Type = billing.TypeSubscriptionDeleted
		if _, err := s.reconciler.ApplySubscriptionCanceled(ctx, billing.SubscriptionCanceled{
			Envelope:   env,
			CustomerID: u.CustomerID(),
		}); err != nil {
			return "", err
		}
		return "canceled", nil
	}

	// A one-time grant is not downgraded by an old, inactive subscription
	if u.Plan == user.PlanOneTime && user.PlanForSubscriptionStatus(sub.Status) != user.PlanSubscription {
		return "skipped", nil
	}

	env.Type = billing.TypeSubscriptionUpdated
	ev := billing.SubscriptionChanged{
		Envelope:   env,
		CustomerID: u.CustomerID(),
		Status:     sub.Status,
	}
	if sub.CurrentPeriodEnd != nil {
		end := sub.CurrentPeriodEnd.Unix()
		ev.CurrentPeriodEnd = &end
	}
	if _, err := s.reconciler.ApplySubscriptionChanged(ctx, ev); err != nil {
		return "", err
	}
	return "updated", nil
}

// pickSubscription prefers an active or trialing subscription, then the first one listed
func pickSubscription(subs []billing.Subscription) (billing.Subscription, bool) {
	if len(subs) == 0 {
		return billing.Subscription{}, false
	}
	for _, sub := range subs {
		if user.PlanForSubscriptionStatus(sub.Status) == user.PlanSubscription {
			return sub, true
		}
	}
	return subs[0], true
}
