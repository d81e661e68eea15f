package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

const serperBaseURL = "https://google.serper.dev"

// Serper is the Serper.dev Google search provider (keyed).
type Serper struct {
	client *resty.Client
}

// NewSerper creates a Serper provider with the given API key.
func NewSerper(apiKey string) *Serper {
	client := resty.New().
		SetBaseURL(serperBaseURL).
		SetHeader("X-API-KEY", apiKey).
		SetHeader("Content-Type", "application/json")

	return &Serper{client: client}
}

// Name implements WebProvider.
func (s *Serper) Name() string { return "serper" }

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// Search implements WebProvider.
func (s *Serper) Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error) {
	var out serperResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(serperRequest{Q: query, Num: topK}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, errors.ProviderFailureError(s.Name(), err)
	}
	if resp.IsError() {
		return nil, errors.ProviderFailureError(s.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}

	results := make([]retrieval.RawResult, 0, len(out.Organic))
	for i, r := range out.Organic {
		if i >= topK {
			break
		}
		results = append(results, retrieval.RawResult{
			ID:      hash.DocumentID(r.Link, s.Name(), r.Title),
			Content: r.Snippet,
			Meta: retrieval.ResultMeta{
				URL:      r.Link,
				Title:    r.Title,
				Provider: s.Name(),
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: scoreForRank(i),
		})
	}
	return results, nil
}
