package user

import "context"

// Service defines the interface for user business logic
type Service interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// Sync creates the user on first sight (plan = free) or refreshes the profile
	Sync(ctx context.Context, u *User) (*User, error)

	// Update updates a user's profile
	Update(ctx context.Context, u *User) error
}
