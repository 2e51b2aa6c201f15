// Package users is the typed client for staff accounts. The agenda
// consumes it for the performer picker: management users double as the
// list of staff who can be assigned to appointments.
package users

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// User is one staff account.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Color  string `json:"color,omitempty"`
	Active bool   `json:"active"`
}

// Client wraps the gateway with staff endpoints.
type Client struct {
	api    *api.Client
	logger *logging.Logger
}

// NewClient builds the users client.
func NewClient(gateway *api.Client, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{api: gateway, logger: logger.Named("users")}
}

// ListManagementUsers returns staff accounts with management roles;
// the agenda treats them as assignable performers.
func (c *Client) ListManagementUsers(ctx context.Context) ([]User, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/users/management", &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[User](raw)
}

// GetByID fetches one staff account.
func (c *Client) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.api.Get(ctx, "/users/"+url.PathEscape(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the authenticated account. Never cached to disk; the
// persistence allowlist refuses the auth domain outright.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.api.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete deactivates one staff account.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.api.Delete(ctx, "/users/"+url.PathEscape(id))
}

// Restore reactivates one staff account.
func (c *Client) Restore(ctx context.Context, id string) error {
	return c.api.Post(ctx, "/users/"+url.PathEscape(id)+"/restore", nil, nil)
}

// BulkDelete deactivates every id. The backend only exposes per-id
// endpoints, so the batch fans out and settles client-side.
func (c *Client) BulkDelete(ctx context.Context, ids []string) api.BulkResult {
	res := api.AllSettled(ctx, ids, c.Delete)
	if res.Failed > 0 {
		c.logger.Warn("bulk delete partially failed", "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}

// BulkRestore reactivates every id, settling all calls.
func (c *Client) BulkRestore(ctx context.Context, ids []string) api.BulkResult {
	res := api.AllSettled(ctx, ids, c.Restore)
	if res.Failed > 0 {
		c.logger.Warn("bulk restore partially failed", "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}
