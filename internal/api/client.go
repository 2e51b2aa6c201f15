// Package api provides the single configured HTTP gateway used by every
// domain service client: base URL resolution, bearer-token injection,
// request correlation ids, and error normalization.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// Client is the shared HTTP gateway. Domain service clients wrap it with
// typed methods; they never build requests themselves.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      *TokenSource
	logger     *logging.Logger
	tracer     trace.Tracer
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client. Tests use this
// together with httptest servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token injected into every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = NewTokenSource(token) }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient constructs the gateway client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Named("api"),
		tracer:     otel.Tracer("7pet.internal.api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON issues one request and decodes the JSON response into out.
// out may be nil for endpoints that return no body. Network and HTTP
// errors propagate unchanged to the caller; retry policy is the query
// layer's concern.
func (c *Client) DoJSON(ctx context.Context, method, path string, body any, out any) error {
	ctx, span := c.tracer.Start(ctx, "api.request")
	defer span.End()

	if c.token != nil {
		if err := c.token.CheckExpiry(time.Now()); err != nil {
			span.RecordError(err)
			return err
		}
	}

	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		req.Header.Set("Authorization", "Bearer "+c.token.Raw())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, respBody)
		span.RecordError(apiErr)
		c.logger.Warn("request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// Get is shorthand for DoJSON with http.MethodGet and no body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for DoJSON with http.MethodPost.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out)
}

// Put is shorthand for DoJSON with http.MethodPut.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPut, path, body, out)
}

// Delete is shorthand for DoJSON with http.MethodDelete and no body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, nil)
}

// UnwrapList normalizes the two list envelope shapes the backend emits:
// a bare JSON array, or {"data": [...]}. Every list consumer depends on
// this uniformity.
func UnwrapList[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return []T{}, nil
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("api: decode list: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("api: decode list envelope: %w", err)
	}
	if wrapped.Data == nil {
		return []T{}, nil
	}
	return wrapped.Data, nil
}
