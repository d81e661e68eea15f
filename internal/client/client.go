// Package client provides a Go client for the fuse-search HTTP API.
// It is used by the CLI and is suitable for embedding in other services.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Config configures the API client.
type Config struct {
	// BaseURL is the fuse-search server base URL.
	BaseURL string

	// APIKey authenticates against the server (optional).
	APIKey string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RetryCount is the number of retries on transient failures.
	RetryCount int
}

// DefaultConfig returns a config pointing at a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// Client talks to a fuse-search server.
type Client struct {
	client *resty.Client
}

// New creates an API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{client: client}
}

// Retrieve runs a retrieval request against the server.
func (c *Client) Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Response, error) {
	var (
		out    retrieval.Response
		apiErr errors.ErrorResponse
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/retrieve")
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "retrieve request failed", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp.StatusCode(), apiErr)
	}

	return &out, nil
}

// Health reports the server health status and per-lane availability.
type Health struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Lanes   map[string]string `json:"lanes"`
}

// CheckHealth queries the server health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var out Health

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/healthz")
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "health request failed", err)
	}
	if resp.IsError() {
		return nil, errors.Wrap(errors.CodeUnavailable, "health request failed",
			fmt.Errorf("status %d", resp.StatusCode()))
	}

	return &out, nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/version")
	if err != nil {
		return "", errors.Wrap(errors.CodeUnavailable, "version request failed", err)
	}
	if resp.IsError() {
		return "", errors.Wrap(errors.CodeUnavailable, "version request failed",
			fmt.Errorf("status %d", resp.StatusCode()))
	}

	return out.Version, nil
}

// remoteError reconstructs a typed error from the server error envelope so
// callers can use errors.IsCode on client-side failures too.
func remoteError(status int, apiErr errors.ErrorResponse) error {
	if apiErr.Code == "" {
		return errors.New(errors.CodeInternal, fmt.Sprintf("server returned status %d", status))
	}

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error
	}

	err := errors.New(apiErr.Code, message)
	for k, v := range apiErr.Details {
		err = err.WithDetail(k, v)
	}
	return err
}
