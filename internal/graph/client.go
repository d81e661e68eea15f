// Package graph provides a client for the knowledge-graph capability.
// Graph population and storage are external collaborators; this package only
// speaks the query contract.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
)

// Query modes supported by the graph service.
const (
	ModeLocal  = "local"
	ModeGlobal = "global"
	ModeHybrid = "hybrid"
)

// Querier answers fact lookups against the knowledge graph.
type Querier interface {
	Query(ctx context.Context, text, mode string) (*QueryResult, error)
}

// Entity is a knowledge-graph entity.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Relationship links two entities.
type Relationship struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// QueryResult is the graph store's answer to a fact lookup.
type QueryResult struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Confidence    float64        `json:"confidence"`
}

// Client is an HTTP client for the knowledge-graph service.
type Client struct {
	client *resty.Client
}

// Config configures the graph client.
type Config struct {
	// URL is the graph service base URL.
	URL string

	// APIKey authenticates against the service (optional).
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// NewClient creates a knowledge-graph service client.
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

	return &Client{client: client}
}

type queryRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

// Query implements Querier.
func (c *Client) Query(ctx context.Context, text, mode string) (*QueryResult, error) {
	var out QueryResult

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(queryRequest{Text: text, Mode: mode}).
		SetResult(&out).
		Post("/v1/query")
	if err != nil {
		return nil, errors.GraphStoreError("graph query failed", err)
	}
	if resp.IsError() {
		return nil, errors.GraphStoreError("graph query failed",
			fmt.Errorf("status %d", resp.StatusCode()))
	}

	return &out, nil
}
