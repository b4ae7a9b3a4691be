package services

import (
	"context"
	"strings"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
)

// UserService implements user.Service
type UserService struct {
	repo   user.Repository
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo user.Repository, log *logger.Logger) user.Service {
	return &UserService{
		repo:   repo,
		logger: log,
	}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Sync creates the user on first sight with a free plan, or refreshes the
// profile of an existing user without touching its entitlement
func (s *UserService) Sync(ctx context.Context, u *user.User) (*user.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return nil, errors.BadRequest("user id is required")
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))

	synced, err := s.repo.Upsert(ctx, u)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to sync user")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": synced.ID,
		"plan":    synced.Plan,
	}).Info("User synced")

	return synced, nil
}

// Update updates a user's profile
func (s *UserService) Update(ctx context.Context, u *user.User) error {
	err := s.repo.Update(ctx, u)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to update user")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("User updated")

	return nil
}
