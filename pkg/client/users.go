package client

import (
	"context"
	"net/http"
)

// UserService calls the profile endpoints
type UserService struct {
	client *Client
}

// Sync creates or refreshes the caller's profile
func (s *UserService) Sync(ctx context.Context, req SyncUserRequest) (*User, error) {
	var u User
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/users/sync", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me returns the caller's profile
func (s *UserService) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
