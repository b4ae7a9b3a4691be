package user

import "context"

// Repository defines the interface for user data access. It is the Profile
// Store the billing services read and write through. Lookups of absent rows
// return a NOT_FOUND AppError.
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// Upsert creates the user or refreshes its profile columns. Entitlement
	// columns of an existing row are left untouched.
	Upsert(ctx context.Context, user *User) (*User, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByProcessorCustomerID retrieves the user owning a payment processor customer
	GetByProcessorCustomerID(ctx context.Context, customerID string) (*User, error)

	// UpdateEntitlement applies a partial entitlement overwrite in one statement
	// and returns the updated record
	UpdateEntitlement(ctx context.Context, id string, patch EntitlementPatch) (*User, error)

	// Update updates profile columns
	Update(ctx context.Context, user *User) error

	// Delete deletes a user
	Delete(ctx context.Context, id string) error

	// List retrieves all users with pagination
	List(ctx context.Context, limit, offset int) ([]*User, int64, error)

	// ListWithProcessorCustomer pages through users that have a processor customer id
	ListWithProcessorCustomer(ctx context.Context, limit, offset int) ([]*User, error)
}
