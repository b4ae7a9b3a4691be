package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/validator"
	"github.com/pratik-mahalle/jobtrail/internal/services"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

func TestUserHandler_Sync(t *testing.T) {
	repo := testutil.NewMockUserRepository()
	repo.Seed(&user.User{
		ID:          "existing",
		Email:       "old@example.com",
		Entitlement: user.Entitlement{Plan: user.PlanSubscription},
	})
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	handler := NewUserHandler(services.NewUserService(repo, log), log, validator.New())

	tests := []struct {
		name           string
		userID         string
		tokenEmail     string
		body           string
		expectedStatus int
		expectedEmail  string
		expectedPlan   user.Plan
	}{
		{
			name:           "new user starts free",
			userID:         "new_user",
			body:           `{"email":"Grace@Example.com","firstName":"Grace"}`,
			expectedStatus: http.StatusOK,
			expectedEmail:  "grace@example.com",
			expectedPlan:   user.PlanFree,
		},
		{
			name:           "email falls back to token claim",
			userID:         "token_user",
			tokenEmail:     "token@example.com",
			expectedStatus: http.StatusOK,
			expectedEmail:  "token@example.com",
			expectedPlan:   user.PlanFree,
		},
		{
			name:           "existing user keeps plan",
			userID:         "existing",
			body:           `{"email":"new@example.com"}`,
			expectedStatus: http.StatusOK,
			expectedEmail:  "new@example.com",
			expectedPlan:   user.PlanSubscription,
		},
		{
			name:           "invalid email",
			userID:         "bad",
			body:           `{"email":"not-an-email"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unauthenticated",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/sync", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = req.WithContext(middleware.WithUser(req.Context(), tt.userID, tt.tokenEmail))
			}
			rr := httptest.NewRecorder()

			handler.Sync(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if rr.Code != http.StatusOK {
				return
			}

			got := repo.Snapshot(tt.userID)
			if got == nil {
				t.Fatal("user was not stored")
			}
			if got.Email != tt.expectedEmail {
				t.Errorf("email = %q, want %q", got.Email, tt.expectedEmail)
			}
			if got.Plan != tt.expectedPlan {
				t.Errorf("plan = %q, want %q", got.Plan, tt.expectedPlan)
			}
		})
	}
}
