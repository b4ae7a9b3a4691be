package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
)

// CustomerService implements billing.CustomerResolver
type CustomerService struct {
	users   user.Repository
	gateway billing.Gateway
	logger  *logger.Logger
}

// NewCustomerService creates a customer resolver
func NewCustomerService(users user.Repository, gateway billing.Gateway, log *logger.Logger) *CustomerService {
	return &CustomerService{
		users:   users,
		gateway: gateway,
		logger:  log,
	}
}

// EnsureCustomer returns a live gateway customer id for the user, creating
// and storing a new one when the stored id is missing or no longer live.
// Concurrent callers may each create a customer; the last stored id wins.
func (s *CustomerService) EnsureCustomer(ctx context.Context, userID string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if existing := u.CustomerID(); existing != "" {
		if s.isLive(ctx, u.ID, existing) {
			return existing, nil
		}
	}

	customerID, err := s.gateway.CreateCustomer(ctx, billing.CustomerParams{
		Email:    u.Email,
		Name:     strings.TrimSpace(u.DisplayName()),
		Metadata: map[string]string{billing.MetadataUserID: u.ID},
	})
	if err != nil {
		return "", gatewayError(err)
	}

	if _, err := s.users.UpdateEntitlement(ctx, u.ID, user.EntitlementPatch{
		ProcessorCustomerID: user.Value(customerID),
	}); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":     u.ID,
			"customer_id": customerID,
		}).ErrorWithErr(err, "Failed to store processor customer id")
		return "", errors.ReconciliationFailed(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     u.ID,
		"customer_id": customerID,
	}).Info("Processor customer created")

	return customerID, nil
}

func (s *CustomerService) isLive(ctx context.Context, userID, customerID string) bool {
	c, err := s.gateway.RetrieveCustomer(ctx, customerID)
	fields := map[string]interface{}{
		"user_id":     userID,
		"customer_id": customerID,
	}
	switch {
	case err == nil && !c.Deleted:
		return true
	case err == nil:
		s.logger.WithFields(fields).Warn("Stored processor customer was deleted, creating a new one")
	case stderrors.Is(err, billing.ErrCustomerNotFound):
		s.logger.WithFields(fields).Warn("Stored processor customer not found, creating a new one")
	default:
		s.logger.WithFields(fields).WarnWithErr(err, "Failed to retrieve processor customer, creating a new one")
	}
	return false
}

// gatewayError maps a gateway failure to an AppError
func gatewayError(err error) error {
	if stderrors.Is(err, billing.ErrPaymentsDisabled) {
		return errors.PaymentsDisabled()
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.ProviderAPIError("payment processor", err)
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}
