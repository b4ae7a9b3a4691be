package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/repository/postgres"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

func TestBillingService_CheckoutWithCustomerOwnedElsewhere(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	ctx := context.Background()
	repo := postgres.NewUserRepository(db)
	require.NoError(t, repo.Create(ctx, &user.User{ID: "user_1", Email: "ada@example.com"}))
	require.NoError(t, repo.Create(ctx, &user.User{ID: "user_2", Email: "grace@example.com"}))
	_, err := repo.UpdateEntitlement(ctx, "user_1", user.EntitlementPatch{ProcessorCustomerID: user.Value("cus_1")})
	require.NoError(t, err)

	svc := NewBillingService(repo, config.BillingConfig{EnforceEventOrder: true}, logger.Nop())
	svc.now = func() time.Time { return fixedNow }

	ev := billing.CheckoutCompleted{
		Envelope:   billing.Envelope{ID: "evt_1", Type: billing.TypeCheckoutCompleted, Created: fixedNow},
		UserID:     "user_2",
		CustomerID: "cus_1",
	}

	// Redelivery must land the same way instead of failing every time
	for i := 0; i < 2; i++ {
		out, err := svc.Apply(ctx, ev)
		require.NoError(t, err)
		assert.True(t, out.Resolved)
		assert.Equal(t, "user_2", out.UserID)
		assert.Equal(t, user.PlanSubscription, out.Plan)
	}

	second, err := repo.GetByID(ctx, "user_2")
	require.NoError(t, err)
	assert.Equal(t, user.PlanSubscription, second.Plan)
	assert.Nil(t, second.ProcessorCustomerID)
	require.NotNil(t, second.EventAt)
	assert.True(t, second.EventAt.Equal(fixedNow))

	owner, err := repo.GetByProcessorCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", owner.ID)
	assert.Equal(t, user.PlanFree, owner.Plan)
}

func TestBillingService_CheckoutLinksFreeCustomer(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	ctx := context.Background()
	repo := postgres.NewUserRepository(db)
	require.NoError(t, repo.Create(ctx, &user.User{ID: "user_1", Email: "ada@example.com"}))

	svc := NewBillingService(repo, config.BillingConfig{}, logger.Nop())
	_, err := svc.Apply(ctx, billing.CheckoutCompleted{
		Envelope:   billing.Envelope{ID: "evt_1", Type: billing.TypeCheckoutCompleted},
		UserID:     "user_1",
		CustomerID: "cus_9",
	})
	require.NoError(t, err)

	u, err := repo.GetByID(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, u.ProcessorCustomerID)
	assert.Equal(t, "cus_9", *u.ProcessorCustomerID)
}
