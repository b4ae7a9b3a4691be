package services

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

var enabledBilling = config.BillingConfig{
	PaymentsEnabled:    true,
	SecretKey:          "sk_test_123",
	WebhookSecret:      "whsec_123",
	MonthlyPriceID:     "price_month",
	YearlyPriceID:      "price_year",
	Currency:           "usd",
	OneTimeDescription: "Pay What You Want",
}

type checkoutFixture struct {
	repo     *testutil.MockUserRepository
	gateway  *testutil.MockGateway
	checkout *CheckoutService
}

func newCheckoutFixture(t *testing.T, cfg config.BillingConfig) *checkoutFixture {
	t.Helper()
	repo := testutil.NewMockUserRepository()
	gw := testutil.NewMockGateway()
	log := logger.Nop()
	reconciler := NewBillingService(repo, cfg, log)
	customers := NewCustomerService(repo, gw, log)
	return &checkoutFixture{
		repo:     repo,
		gateway:  gw,
		checkout: NewCheckoutService(repo, gw, customers, reconciler, cfg, log),
	}
}

func TestCustomerService_EnsureCustomer(t *testing.T) {
	tests := []struct {
		name        string
		storedID    string
		remote      *billing.Customer
		retrieveErr error
		wantID      string
		wantCreated bool
	}{
		{
			name:     "live stored customer is reused",
			storedID: "cus_live",
			remote:   &billing.Customer{ID: "cus_live"},
			wantID:   "cus_live",
		},
		{
			name:        "no stored customer",
			wantID:      "cus_new",
			wantCreated: true,
		},
		{
			name:        "deleted customer is replaced",
			storedID:    "cus_gone",
			remote:      &billing.Customer{ID: "cus_gone", Deleted: true},
			wantID:      "cus_new",
			wantCreated: true,
		},
		{
			name:        "missing customer is replaced",
			storedID:    "cus_missing",
			wantID:      "cus_new",
			wantCreated: true,
		},
		{
			name:        "retrieval failure is replaced",
			storedID:    "cus_flaky",
			retrieveErr: stderrors.New("timeout"),
			wantID:      "cus_new",
			wantCreated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockUserRepository()
			gw := testutil.NewMockGateway()
			gw.RetrieveCustomerError = tt.retrieveErr
			if tt.remote != nil {
				gw.Customers[tt.remote.ID] = tt.remote
			}

			u := &user.User{ID: "user_1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
			if tt.storedID != "" {
				u.ProcessorCustomerID = testutil.StrPtr(tt.storedID)
			}
			repo.Seed(u)

			svc := NewCustomerService(repo, gw, logger.Nop())
			id, err := svc.EnsureCustomer(context.Background(), "user_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantID, repo.Snapshot("user_1").CustomerID())

			if tt.wantCreated {
				require.Len(t, gw.CreatedCustomers, 1)
				created := gw.CreatedCustomers[0]
				assert.Equal(t, "ada@example.com", created.Email)
				assert.Equal(t, "Ada Lovelace", created.Name)
				assert.Equal(t, "user_1", created.Metadata["userId"])
			} else {
				assert.Empty(t, gw.CreatedCustomers)
			}
		})
	}
}

func TestCustomerService_EnsureCustomer_Errors(t *testing.T) {
	repo := testutil.NewMockUserRepository()
	gw := testutil.NewMockGateway()
	svc := NewCustomerService(repo, gw, logger.Nop())

	_, err := svc.EnsureCustomer(context.Background(), "user_missing")
	assert.True(t, errors.IsNotFound(err))

	repo.Seed(&user.User{ID: "user_1", Email: "a@example.com"})
	gw.CreateCustomerError = stderrors.New("api unavailable")
	_, err = svc.EnsureCustomer(context.Background(), "user_1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderAPI))
	assert.Nil(t, repo.Snapshot("user_1").ProcessorCustomerID)
}

func TestCheckoutService_StartSubscriptionCheckout(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantPrice string
	}{
		{name: "default interval", interval: "", wantPrice: "price_month"},
		{name: "monthly", interval: "month", wantPrice: "price_month"},
		{name: "yearly", interval: "year", wantPrice: "price_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, enabledBilling)
			f.repo.Seed(&user.User{ID: "user_1", Email: "a@example.com"})

			url, err := f.checkout.StartSubscriptionCheckout(context.Background(), "user_1", tt.interval, "https://app.example/")
			require.NoError(t, err)
			assert.Equal(t, "https://checkout.example/cs_test", url)

			require.Len(t, f.gateway.Checkouts, 1)
			params := f.gateway.Checkouts[0]
			assert.Equal(t, tt.wantPrice, params.PriceID)
			assert.Equal(t, "cus_new", params.CustomerID)
			assert.Equal(t, "https://app.example/billing/success", params.SuccessURL)
			assert.Equal(t, "https://app.example/billing/cancel", params.CancelURL)
			assert.Equal(t, map[string]string{"userId": "user_1", "plan": "pro"}, params.Metadata)

			// Checkout alone never changes the plan
			assert.Equal(t, user.PlanFree, f.repo.Snapshot("user_1").Plan)
		})
	}
}

func TestCheckoutService_StartSubscriptionCheckout_Rejections(t *testing.T) {
	f := newCheckoutFixture(t, config.BillingConfig{})
	f.repo.Seed(&user.User{ID: "user_1"})
	_, err := f.checkout.StartSubscriptionCheckout(context.Background(), "user_1", "month", "https://app.example")
	assert.True(t, errors.IsCode(err, errors.ErrCodePaymentsDisabled))
	assert.Zero(t, f.gateway.CallCount())

	f = newCheckoutFixture(t, enabledBilling)
	f.repo.Seed(&user.User{ID: "user_1"})
	_, err = f.checkout.StartSubscriptionCheckout(context.Background(), "user_1", "week", "https://app.example")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	noPrice := enabledBilling
	noPrice.YearlyPriceID = ""
	f = newCheckoutFixture(t, noPrice)
	f.repo.Seed(&user.User{ID: "user_1"})
	_, err = f.checkout.StartSubscriptionCheckout(context.Background(), "user_1", "year", "https://app.example")
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfiguration))

	f = newCheckoutFixture(t, enabledBilling)
	f.repo.Seed(&user.User{ID: "user_1"})
	f.gateway.CheckoutError = stderrors.New("card_declined")
	_, err = f.checkout.StartSubscriptionCheckout(context.Background(), "user_1", "month", "https://app.example")
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderAPI))
}

func TestCheckoutService_StartOneTimePayment(t *testing.T) {
	t.Run("zero amount grants without the gateway", func(t *testing.T) {
		for _, cfg := range []config.BillingConfig{enabledBilling, {}} {
			f := newCheckoutFixture(t, cfg)
			f.repo.Seed(&user.User{ID: "user_1"})

			res, err := f.checkout.StartOneTimePayment(context.Background(), "user_1", 0)
			require.NoError(t, err)
			assert.True(t, res.Granted)
			assert.Empty(t, res.ClientSecret)
			assert.Zero(t, f.gateway.CallCount())

			got := f.repo.Snapshot("user_1")
			assert.Equal(t, user.PlanOneTime, got.Plan)
			require.NotNil(t, got.OneTimeAmount)
			assert.Equal(t, int64(0), *got.OneTimeAmount)
		}
	})

	t.Run("positive amount creates an intent", func(t *testing.T) {
		f := newCheckoutFixture(t, enabledBilling)
		f.repo.Seed(&user.User{ID: "user_1", Email: "a@example.com"})

		res, err := f.checkout.StartOneTimePayment(context.Background(), "user_1", 1500)
		require.NoError(t, err)
		assert.False(t, res.Granted)
		assert.Equal(t, "pi_test_secret", res.ClientSecret)

		require.Len(t, f.gateway.PaymentIntents, 1)
		intent := f.gateway.PaymentIntents[0]
		assert.Equal(t, int64(1500), intent.Amount)
		assert.Equal(t, "usd", intent.Currency)
		assert.Equal(t, "cus_new", intent.CustomerID)
		assert.Equal(t, map[string]string{"userId": "user_1", "kind": "pwyw"}, intent.Metadata)

		// Entitlement waits for the webhook or the client confirmation
		assert.Equal(t, user.PlanFree, f.repo.Snapshot("user_1").Plan)
	})

	t.Run("negative amount", func(t *testing.T) {
		f := newCheckoutFixture(t, enabledBilling)
		_, err := f.checkout.StartOneTimePayment(context.Background(), "user_1", -1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	})

	t.Run("payments disabled", func(t *testing.T) {
		f := newCheckoutFixture(t, config.BillingConfig{})
		f.repo.Seed(&user.User{ID: "user_1"})
		_, err := f.checkout.StartOneTimePayment(context.Background(), "user_1", 100)
		assert.True(t, errors.IsCode(err, errors.ErrCodePaymentsDisabled))
	})
}

func TestCheckoutService_OpenBillingPortal(t *testing.T) {
	f := newCheckoutFixture(t, enabledBilling)
	u := &user.User{ID: "user_1", Entitlement: user.Entitlement{ProcessorCustomerID: testutil.StrPtr("cus_1")}}
	f.repo.Seed(u)
	f.gateway.Customers["cus_1"] = &billing.Customer{ID: "cus_1"}

	url, err := f.checkout.OpenBillingPortal(context.Background(), "user_1", "https://app.example/billing")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example/portal/cus_1", url)
}

func TestCheckoutService_SubscriptionStatus(t *testing.T) {
	end := time.Unix(1780000000, 0).UTC()

	tests := []struct {
		name   string
		cfg    config.BillingConfig
		custID string
		subs   []billing.Subscription
		want   billing.SubscriptionState
	}{
		{
			name: "payments disabled",
			cfg:  config.BillingConfig{},
			want: billing.SubscriptionState{},
		},
		{
			name: "no customer",
			cfg:  enabledBilling,
			want: billing.SubscriptionState{},
		},
		{
			name:   "monthly",
			cfg:    enabledBilling,
			custID: "cus_1",
			subs:   []billing.Subscription{{ID: "sub_1", Status: "active", PriceID: "price_month", CurrentPeriodEnd: &end}},
			want:   billing.SubscriptionState{Active: true, Plan: PlanNameMonthly, CurrentPeriodEnd: testutil.Int64Ptr(end.Unix())},
		},
		{
			name:   "yearly",
			cfg:    enabledBilling,
			custID: "cus_1",
			subs:   []billing.Subscription{{ID: "sub_1", Status: "active", PriceID: "price_year"}},
			want:   billing.SubscriptionState{Active: true, Plan: PlanNameYearly},
		},
		{
			name:   "only inactive subscriptions",
			cfg:    enabledBilling,
			custID: "cus_1",
			subs:   []billing.Subscription{{ID: "sub_1", Status: "canceled", PriceID: "price_month"}},
			want:   billing.SubscriptionState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, tt.cfg)
			u := &user.User{ID: "user_1"}
			if tt.custID != "" {
				u.ProcessorCustomerID = testutil.StrPtr(tt.custID)
				f.gateway.Subscriptions[tt.custID] = tt.subs
			}
			f.repo.Seed(u)

			got, err := f.checkout.SubscriptionStatus(context.Background(), "user_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}
