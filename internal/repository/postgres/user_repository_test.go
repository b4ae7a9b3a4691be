package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

func createUser(t *testing.T, repo user.Repository, id, email string) *user.User {
	t.Helper()
	u := &user.User{ID: id, Email: email, FirstName: "Ada", LastName: "Lovelace"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u
}

func TestUserRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)

	tests := []struct {
		name    string
		user    *user.User
		wantErr bool
	}{
		{
			name:    "create user successfully",
			user:    &user.User{ID: "user_1", Email: "test@example.com"},
			wantErr: false,
		},
		{
			name:    "create another user",
			user:    &user.User{ID: "user_2", Email: "another@example.com"},
			wantErr: false,
		},
		{
			name:    "duplicate id",
			user:    &user.User{ID: "user_1", Email: "dup@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(context.Background(), tt.user)

			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.user.Plan != user.PlanFree {
				t.Errorf("Create() Plan = %v, want %v", tt.user.Plan, user.PlanFree)
			}
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, repo, "user_1", "test@example.com")

	tests := []struct {
		name         string
		userID       string
		wantNotFound bool
	}{
		{name: "get existing user", userID: u.ID},
		{name: "get non-existing user", userID: "missing", wantNotFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(ctx, tt.userID)

			if tt.wantNotFound {
				if !errors.IsNotFound(err) {
					t.Errorf("GetByID() error = %v, want NOT_FOUND", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if got.Email != u.Email || got.FirstName != "Ada" || got.LastName != "Lovelace" {
				t.Errorf("GetByID() = %+v, want profile of %+v", got, u)
			}
			if got.ProcessorCustomerID != nil || got.SubscriptionStatus != nil || got.CurrentPeriodEnd != nil {
				t.Errorf("GetByID() new user has entitlement fields set: %+v", got.Entitlement)
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, repo, "user_1", "test@example.com")

	if _, err := repo.GetByEmail(ctx, "test@example.com"); err != nil {
		t.Errorf("GetByEmail() error = %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nonexistent@example.com"); !errors.IsNotFound(err) {
		t.Errorf("GetByEmail() error = %v, want NOT_FOUND", err)
	}
}

func TestUserRepository_UpdateEntitlement(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, repo, "user_1", "test@example.com")

	periodEnd := time.Unix(1767225600, 0).UTC()
	got, err := repo.UpdateEntitlement(ctx, "user_1", user.EntitlementPatch{
		ProcessorCustomerID: user.Value("cus_123"),
		Plan:                user.Value(user.PlanSubscription),
		SubscriptionStatus:  user.Value("active"),
		CurrentPeriodEnd:    user.Value(periodEnd),
	})
	if err != nil {
		t.Fatalf("UpdateEntitlement() error = %v", err)
	}
	if got.Plan != user.PlanSubscription || got.CustomerID() != "cus_123" {
		t.Errorf("UpdateEntitlement() = %+v", got.Entitlement)
	}
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("UpdateEntitlement() CurrentPeriodEnd = %v, want %v", got.CurrentPeriodEnd, periodEnd)
	}

	// Untouched fields survive, cleared fields become NULL
	got, err = repo.UpdateEntitlement(ctx, "user_1", user.EntitlementPatch{
		Plan:               user.Value(user.PlanFree),
		SubscriptionStatus: user.Value("canceled"),
		CurrentPeriodEnd:   user.Null[time.Time](),
	})
	if err != nil {
		t.Fatalf("UpdateEntitlement() error = %v", err)
	}
	if got.CustomerID() != "cus_123" {
		t.Errorf("UpdateEntitlement() cleared customer id")
	}
	if got.CurrentPeriodEnd != nil {
		t.Errorf("UpdateEntitlement() CurrentPeriodEnd = %v, want nil", got.CurrentPeriodEnd)
	}
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "canceled" {
		t.Errorf("UpdateEntitlement() SubscriptionStatus = %v, want canceled", got.SubscriptionStatus)
	}

	byCustomer, err := repo.GetByProcessorCustomerID(ctx, "cus_123")
	if err != nil {
		t.Fatalf("GetByProcessorCustomerID() error = %v", err)
	}
	if byCustomer.ID != "user_1" {
		t.Errorf("GetByProcessorCustomerID() ID = %v, want user_1", byCustomer.ID)
	}

	if _, err := repo.UpdateEntitlement(ctx, "missing", user.EntitlementPatch{Plan: user.Value(user.PlanOneTime)}); !errors.IsNotFound(err) {
		t.Errorf("UpdateEntitlement() on missing user error = %v, want NOT_FOUND", err)
	}
}

func TestUserRepository_GetByProcessorCustomerID_Missing(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	for _, id := range []string{"", "cus_unknown"} {
		if _, err := repo.GetByProcessorCustomerID(context.Background(), id); !errors.IsNotFound(err) {
			t.Errorf("GetByProcessorCustomerID(%q) error = %v, want NOT_FOUND", id, err)
		}
	}
}

func TestUserRepository_Upsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, &user.User{ID: "user_1", Email: "old@example.com"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if created.Plan != user.PlanFree {
		t.Errorf("Upsert() Plan = %v, want free", created.Plan)
	}

	if _, err := repo.UpdateEntitlement(ctx, "user_1", user.EntitlementPatch{Plan: user.Value(user.PlanOneTime)}); err != nil {
		t.Fatalf("UpdateEntitlement() error = %v", err)
	}

	updated, err := repo.Upsert(ctx, &user.User{ID: "user_1", Email: "new@example.com", FirstName: "Grace"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if updated.Email != "new@example.com" || updated.FirstName != "Grace" {
		t.Errorf("Upsert() did not refresh profile: %+v", updated)
	}
	if updated.Plan != user.PlanOneTime {
		t.Errorf("Upsert() Plan = %v, want entitlement untouched", updated.Plan)
	}
}

func TestUserRepository_ListWithProcessorCustomer(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, repo, "user_1", "a@example.com")
	createUser(t, repo, "user_2", "b@example.com")
	createUser(t, repo, "user_3", "c@example.com")

	for _, id := range []string{"user_1", "user_3"} {
		if _, err := repo.UpdateEntitlement(ctx, id, user.EntitlementPatch{ProcessorCustomerID: user.Value("cus_" + id)}); err != nil {
			t.Fatalf("UpdateEntitlement() error = %v", err)
		}
	}

	users, err := repo.ListWithProcessorCustomer(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListWithProcessorCustomer() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != "user_1" || users[1].ID != "user_3" {
		t.Errorf("ListWithProcessorCustomer() = %v users, want user_1 and user_3", len(users))
	}

	all, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(all) != 2 {
		t.Errorf("List() = %d users (total %d), want 2 (total 3)", len(all), total)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, repo, "user_1", "test@example.com")

	u.LastName = "Byron"
	if err := repo.Update(ctx, u); err != nil {
		t.Errorf("Update() error = %v", err)
	}

	updated, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if updated.LastName != "Byron" {
		t.Errorf("Update() LastName = %v, want Byron", updated.LastName)
	}

	if err := repo.Update(ctx, &user.User{ID: "missing"}); !errors.IsNotFound(err) {
		t.Errorf("Update() on missing user error = %v, want NOT_FOUND", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, repo, "user_1", "test@example.com")

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, u.ID); err == nil {
		t.Error("Delete() user still exists after deletion")
	}
}
