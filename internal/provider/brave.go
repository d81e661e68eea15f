package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

const braveBaseURL = "https://api.search.brave.com/res/v1"

// Brave is the Brave Search API provider (keyed).
type Brave struct {
	client *resty.Client
}

// NewBrave creates a Brave provider with the given API key.
func NewBrave(apiKey string) *Brave {
	client := resty.New().
		SetBaseURL(braveBaseURL).
		SetHeader("X-Subscription-Token", apiKey).
		SetHeader("Accept", "application/json")

	return &Brave{client: client}
}

// Name implements WebProvider.
func (b *Brave) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements WebProvider.
func (b *Brave) Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error) {
	var out braveResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("count", fmt.Sprintf("%d", topK)).
		SetResult(&out).
		Get("/web/search")
	if err != nil {
		return nil, errors.ProviderFailureError(b.Name(), err)
	}
	if resp.IsError() {
		return nil, errors.ProviderFailureError(b.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}

	results := make([]retrieval.RawResult, 0, len(out.Web.Results))
	for i, r := range out.Web.Results {
		if i >= topK {
			break
		}
		results = append(results, retrieval.RawResult{
			ID:      hash.DocumentID(r.URL, b.Name(), r.Title),
			Content: r.Description,
			Meta: retrieval.ResultMeta{
				URL:      r.URL,
				Title:    r.Title,
				Provider: b.Name(),
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: scoreForRank(i),
		})
	}
	return results, nil
}
