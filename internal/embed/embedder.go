// Package embed provides a client for the remote embedding capability.
// Embedding generation itself is an external collaborator; this package only
// speaks its HTTP contract.
package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
)

// Embedder turns query text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client is an HTTP client for the embedding service.
type Client struct {
	client *resty.Client
	model  string
}

// Config configures the embedding client.
type Config struct {
	// URL is the embedding service base URL.
	URL string

	// APIKey authenticates against the service (optional).
	APIKey string

	// Model is the embedding model identifier.
	Model string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// NewClient creates an embedding service client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
	}
}

type embedRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: c.model, Input: []string{text}}).
		SetResult(&out).
		Post("/v1/embed")
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "embedding request failed", err)
	}
	if resp.IsError() {
		return nil, errors.Wrap(errors.CodeUnavailable, "embedding request failed",
			fmt.Errorf("status %d", resp.StatusCode()))
	}
	if len(out.Embeddings) == 0 {
		return nil, errors.New(errors.CodeInternal, "embedding service returned no vectors")
	}

	return out.Embeddings[0], nil
}
