// Package customers is the typed client for the customer service:
// customer records, their pets, and the search endpoint agenda booking
// flows depend on.
package customers

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Customer is one customer record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Type    string `json:"type,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Pet is one pet belonging to a customer.
type Pet struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Species    string `json:"species,omitempty"`
	Breed      string `json:"breed,omitempty"`
	Size       string `json:"size,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Client wraps the gateway with customer endpoints.
type Client struct {
	api    *api.Client
	logger *logging.Logger
}

// NewClient builds the customers client.
func NewClient(gateway *api.Client, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{api: gateway, logger: logger.Named("customers")}
}

// List returns all active customers.
func (c *Client) List(ctx context.Context) ([]Customer, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/customers", &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[Customer](raw)
}

// GetByID fetches one customer.
func (c *Client) GetByID(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.api.Get(ctx, "/customers/"+url.PathEscape(id), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Search runs a server-side name/phone search, capped at limit results.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]Customer, error) {
	q := url.Values{}
	q.Set("q", term)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/customers/search?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[Customer](raw)
}

// Pets returns the pets of one customer.
func (c *Client) Pets(ctx context.Context, customerID string) ([]Pet, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/customers/"+url.PathEscape(customerID)+"/pets", &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[Pet](raw)
}

// Delete soft-deletes one customer.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.api.Delete(ctx, "/customers/"+url.PathEscape(id))
}

// Restore brings one customer back from the trash.
func (c *Client) Restore(ctx context.Context, id string) error {
	return c.api.Post(ctx, "/customers/"+url.PathEscape(id)+"/restore", nil, nil)
}

// BulkDelete soft-deletes every id via the per-id endpoint, settling
// all calls.
func (c *Client) BulkDelete(ctx context.Context, ids []string) api.BulkResult {
	res := api.AllSettled(ctx, ids, c.Delete)
	if res.Failed > 0 {
		c.logger.Warn("bulk delete partially failed", "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}

// BulkRestore restores every id, settling all calls.
func (c *Client) BulkRestore(ctx context.Context, ids []string) api.BulkResult {
	res := api.AllSettled(ctx, ids, c.Restore)
	if res.Failed > 0 {
		c.logger.Warn("bulk restore partially failed", "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}
