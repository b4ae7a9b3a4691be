package middleware

import (
	"context"
	"net/http"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/utils"
)

// UpgradeURL is where clients send users who hit a premium gate
const UpgradeURL = "/billing"

// UserLoader loads the profile of the authenticated user
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// RequirePremium rejects callers without a subscription or one-time grant with
// 402 PAYMENT_REQUIRED. It must run after AuthMiddleware.
func RequirePremium(users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				utils.WriteError(w, errors.Unauthorized("User not authenticated"))
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil && !errors.IsNotFound(err) {
				utils.WriteErr(w, err)
				return
			}
			if !user.HasPremium(u) {
				utils.WriteError(w, errors.PaymentRequired("Premium plan required").
					WithDetails(map[string]string{"upgradeUrl": UpgradeURL}))
				return
			}

			AddLogField(w, "plan", string(u.Plan))
			next.ServeHTTP(w, r)
		})
	}
}
