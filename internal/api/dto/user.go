package dto

import (
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserDTO converts a domain user
func NewUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Plan:      string(u.Plan),
		CreatedAt: u.CreatedAt,
	}
}

// SyncUserRequest carries the profile the identity provider knows about.
// The user id always comes from the token.
type SyncUserRequest struct {
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}
