package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Feed is a generic HTTP JSON feed provider for secondary sources such as
// news or market data. The endpoint is expected to answer
// GET {base}/search?q=<query>&limit=<topK> with a JSON array of items.
type Feed struct {
	name   string
	client *resty.Client
}

// NewFeed creates a feed provider for the given name and base URL. An empty
// apiKey makes the feed keyless.
func NewFeed(name, baseURL, apiKey string) *Feed {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &Feed{name: name, client: client}
}

// Name implements WebProvider.
func (f *Feed) Name() string { return f.name }

type feedItem struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search implements WebProvider.
func (f *Feed) Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error) {
	var items []feedItem

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("limit", fmt.Sprintf("%d", topK)).
		SetResult(&items).
		Get("/search")
	if err != nil {
		return nil, errors.ProviderFailureError(f.name, err)
	}
	if resp.IsError() {
		return nil, errors.ProviderFailureError(f.name, fmt.Errorf("status %d", resp.StatusCode()))
	}

	results := make([]retrieval.RawResult, 0, len(items))
	for i, item := range items {
		if i >= topK {
			break
		}
		score := item.Score
		if score == 0 {
			score = scoreForRank(i)
		}
		id := item.ID
		if id == "" {
			id = hash.DocumentID(item.URL, f.name, item.Title)
		}
		results = append(results, retrieval.RawResult{
			ID:      id,
			Content: item.Content,
			Meta: retrieval.ResultMeta{
				URL:      item.URL,
				Title:    item.Title,
				Provider: f.name,
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: score,
		})
	}
	return results, nil
}
