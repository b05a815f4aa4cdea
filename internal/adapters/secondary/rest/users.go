package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// Login exchanges username and password for a credential. A rejection
// unwraps to ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/login", body: req, out: &resp, anonymous: true})
	if err != nil {
		return nil, asInvalidCredentials(err)
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users/me", out: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateMe(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, call{method: http.MethodPatch, path: "/users/me", body: update, out: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers is admin scoped.
func (c *Client) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	query := url.Values{}
	if filter.Query != "" {
		query.Set("q", filter.Query)
	}
	if filter.Role != "" {
		query.Set("role", string(filter.Role))
	}

	var users []domain.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users", query: query, out: &users}); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) BulkDeleteUsers(ctx context.Context, ids []string) error {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, call{method: http.MethodPost, path: "/users/bulk-delete", body: body})
}

// Leaderboard returns the top users by reputation. It needs no credential.
func (c *Client) Leaderboard(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/leaderboard", out: &users, anonymous: true}); err != nil {
		return nil, err
	}
	return users, nil
}
