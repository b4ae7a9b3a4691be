package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/jobtrail/internal/auth"
	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
)

func newTestStore(t *testing.T, billingCfg config.BillingConfig) *operatorStore {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "jobtrail.db"),
		},
		Billing: billingCfg,
	}
	store, err := openOperatorStore(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOperatorStore_Migrate(t *testing.T) {
	store := newTestStore(t, config.BillingConfig{})

	pending, err := store.pendingMigrations()
	require.NoError(t, err)
	assert.NotEmpty(t, pending)

	applied, err := store.migrate()
	require.NoError(t, err)
	assert.Equal(t, len(pending), applied)

	applied, err = store.migrate()
	require.NoError(t, err)
	assert.Zero(t, applied, "second run applies nothing")

	pending, err = store.pendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOperatorStore_GrantZero(t *testing.T) {
	store := newTestStore(t, config.BillingConfig{})
	_, err := store.migrate()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.users.Create(ctx, &user.User{
		ID:          "user_1",
		Email:       "grad@example.com",
		Entitlement: user.Entitlement{Plan: user.PlanFree},
	}))

	u, err := store.grantZero(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, user.PlanOneTime, u.Plan)
	require.NotNil(t, u.OneTimeAmount)
	assert.Equal(t, int64(0), *u.OneTimeAmount)
	assert.NotNil(t, u.OneTimeGrantedAt)

	_, err = store.grantZero(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestOperatorStore_EventLog(t *testing.T) {
	store := newTestStore(t, config.BillingConfig{})
	_, err := store.migrate()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.events.Record(ctx, &billing.EventRecord{
		EventID:    "evt_1",
		Type:       "customer.subscription.updated",
		CustomerID: "cus_1",
		Outcome:    billing.OutcomeUnresolved,
	}))

	records, err := store.events.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "evt_1", records[0].EventID)
}

func TestOperatorStore_SyncRequiresPayments(t *testing.T) {
	store := newTestStore(t, config.BillingConfig{})

	_, err := store.syncSubscriptions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments are disabled")

	store = newTestStore(t, config.BillingConfig{PaymentsEnabled: true})
	_, err = store.syncSubscriptions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
}

func TestMintedTokenRoundTrip(t *testing.T) {
	token, err := auth.MintToken("user_1", "grad@example.com", "dev-secret", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseClaims(token, "dev-secret")
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID())
}

func TestFormatting(t *testing.T) {
	cents := int64(1250)
	assert.Equal(t, "12.50", formatCents(&cents))
	assert.Equal(t, "-", formatCents(nil))
	assert.Equal(t, "-", formatTime(nil))
	assert.Equal(t, "-", deref(nil))
	assert.Equal(t, "[+] active", formatStatus("active"))
	assert.Equal(t, "[-] unresolved", formatStatus("unresolved"))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
