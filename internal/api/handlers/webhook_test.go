package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/providers"
	"github.com/pratik-mahalle/jobtrail/internal/services"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

const testWebhookSecret = "whsec_test_secret"

type webhookFixture struct {
	handler  *WebhookHandler
	users    *testutil.MockUserRepository
	events   *testutil.MockEventLog
	archiver *testutil.MockArchiver
}

func newWebhookFixture(t *testing.T, cfg config.BillingConfig) *webhookFixture {
	t.Helper()
	log := logger.Nop()
	users := testutil.NewMockUserRepository()
	users.Seed(&user.User{
		ID:    "user_1",
		Email: "ada@example.com",
		Entitlement: user.Entitlement{
			ProcessorCustomerID: testutil.StrPtr("cus_1"),
			Plan:                user.PlanFree,
		},
	})

	gateway := providers.NewStripeGateway(cfg, log)
	reconciler := services.NewBillingService(users, cfg, log)
	f := &webhookFixture{
		users:    users,
		events:   testutil.NewMockEventLog(),
		archiver: testutil.NewMockArchiver(),
	}
	f.handler = NewWebhookHandler(gateway, reconciler, f.events, f.archiver, cfg, log)
	return f
}

func enabledWebhookConfig() config.BillingConfig {
	return config.BillingConfig{
		PaymentsEnabled: true,
		SecretKey:       "sk_test_123",
		WebhookSecret:   testWebhookSecret,
		Currency:        "usd",
	}
}

func stripeEvent(t *testing.T, id, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	}).Header
}

func deliver(h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func TestWebhookHandler_AppliesSubscriptionUpdate(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_sub", billing.TypeSubscriptionUpdated, map[string]any{
		"id":                 "sub_1",
		"object":             "subscription",
		"customer":           "cus_1",
		"status":             "active",
		"current_period_end": 1790000000,
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())

	u := f.users.Snapshot("user_1")
	assert.Equal(t, user.PlanSubscription, u.Plan)
	require.NotNil(t, u.SubscriptionStatus)
	assert.Equal(t, "active", *u.SubscriptionStatus)
	require.NotNil(t, u.CurrentPeriodEnd)
	assert.Equal(t, int64(1790000000), u.CurrentPeriodEnd.Unix())

	rec := f.events.Records["evt_sub"]
	require.NotNil(t, rec)
	assert.Equal(t, billing.OutcomeApplied, rec.Outcome)
	assert.Equal(t, "user_1", rec.UserID)
	assert.Equal(t, "cus_1", rec.CustomerID)
	assert.Equal(t, payload, f.archiver.Payloads["evt_sub"])
}

func TestWebhookHandler_OneTimePayment(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_pi", billing.TypePaymentIntentSucceed, map[string]any{
		"id":              "pi_1",
		"object":          "payment_intent",
		"customer":        "cus_1",
		"amount":          700,
		"amount_received": 500,
		"metadata":        map[string]string{"kind": "pwyw", "userId": "user_1"},
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	u := f.users.Snapshot("user_1")
	assert.Equal(t, user.PlanOneTime, u.Plan)
	assert.Equal(t, testutil.Int64Ptr(500), u.OneTimeAmount)
}

func TestWebhookHandler_Rejections(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_bad", billing.TypeSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "canceled",
	})

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{"missing signature", payload, ""},
		{"wrong secret", payload, sign(payload, "whsec_other")},
		{"tampered body", bytes.Replace(payload, []byte("cus_1"), []byte("cus_9"), 1), sign(payload, testWebhookSecret)},
		{"garbage signature", payload, "t=1,v1=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := deliver(f.handler, tt.payload, tt.signature)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	assert.Zero(t, f.users.EntitlementWrites)
	assert.Empty(t, f.events.Records)
	assert.Empty(t, f.archiver.Payloads)
}

func TestWebhookHandler_UndecodableEventIsRejected(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_mangled", billing.TypeCheckoutCompleted, map[string]any{
		"id":                  "cs_1",
		"customer":            "cus_1",
		"client_reference_id": 42,
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Webhook event could not be decoded")
	assert.NotContains(t, rr.Body.String(), "signature")
	assert.Zero(t, f.users.EntitlementWrites)
	assert.Empty(t, f.events.Records)
}

func TestWebhookHandler_UnsupportedEventIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_inv", "invoice.paid", map[string]any{"id": "in_1"})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, f.users.EntitlementWrites)
	rec := f.events.Records["evt_inv"]
	require.NotNil(t, rec)
	assert.Equal(t, billing.OutcomeIgnored, rec.Outcome)
	assert.Equal(t, "invoice.paid", rec.Type)
}

func TestWebhookHandler_UnknownCustomerIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	payload := stripeEvent(t, "evt_ghost", billing.TypeSubscriptionDeleted, map[string]any{
		"id":       "sub_9",
		"customer": "cus_unknown",
		"status":   "canceled",
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, f.users.EntitlementWrites)
	assert.Equal(t, billing.OutcomeUnresolved, f.events.Records["evt_ghost"].Outcome)
}

func TestWebhookHandler_PersistenceFailureAsksForRetry(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	f.users.UpdateEntitlementError = errors.New("disk full")
	payload := stripeEvent(t, "evt_fail", billing.TypeSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "canceled",
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rec := f.events.Records["evt_fail"]
	require.NotNil(t, rec)
	assert.Equal(t, billing.OutcomeFailed, rec.Outcome)
	assert.Contains(t, rec.Error, "disk full")
}

func TestWebhookHandler_SideChannelFailuresDoNotFailDelivery(t *testing.T) {
	f := newWebhookFixture(t, enabledWebhookConfig())
	f.events.Err = errors.New("audit table locked")
	f.archiver.Err = errors.New("s3 unavailable")
	payload := stripeEvent(t, "evt_ok", billing.TypeCheckoutCompleted, map[string]any{
		"id":       "cs_1",
		"object":   "checkout.session",
		"customer": "cus_1",
		"metadata": map[string]string{"userId": "user_1", "plan": "pro"},
	})

	rr := deliver(f.handler, payload, sign(payload, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, user.PlanSubscription, f.users.Snapshot("user_1").Plan)
}

func TestWebhookHandler_Configuration(t *testing.T) {
	t.Run("payments disabled acknowledges without verifying", func(t *testing.T) {
		f := newWebhookFixture(t, config.BillingConfig{})
		rr := deliver(f.handler, []byte(`{"not":"signed"}`), "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"received":true}`, rr.Body.String())
		assert.Empty(t, f.events.Records)
	})

	t.Run("missing webhook secret", func(t *testing.T) {
		cfg := enabledWebhookConfig()
		cfg.WebhookSecret = ""
		f := newWebhookFixture(t, cfg)
		rr := deliver(f.handler, []byte(`{}`), "t=1,v1=abc")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		f := newWebhookFixture(t, enabledWebhookConfig())
		big := bytes.Repeat([]byte("a"), maxWebhookBody+1)
		rr := deliver(f.handler, big, sign(big, testWebhookSecret))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Zero(t, f.users.EntitlementWrites)
	})
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, billing.OutcomeIgnored, outcomeLabel(billing.Outcome{Ignored: true}))
	assert.Equal(t, billing.OutcomeUnresolved, outcomeLabel(billing.Outcome{}))
	assert.Equal(t, billing.OutcomeStale, outcomeLabel(billing.Outcome{Resolved: true, Stale: true, UserID: "u"}))
	assert.Equal(t, billing.OutcomeApplied, outcomeLabel(billing.Outcome{Resolved: true, UserID: "u"}))
}
