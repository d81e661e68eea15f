package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

const duckDuckGoBaseURL = "https://api.duckduckgo.com"

// DuckDuckGo is the DuckDuckGo Instant Answer provider (keyless).
type DuckDuckGo struct {
	client *resty.Client
}

// NewDuckDuckGo creates a DuckDuckGo provider. No credential is required.
func NewDuckDuckGo() *DuckDuckGo {
	client := resty.New().
		SetBaseURL(duckDuckGoBaseURL).
		SetHeader("Accept", "application/json")

	return &DuckDuckGo{client: client}
}

// Name implements WebProvider.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type duckDuckGoResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search implements WebProvider.
func (d *DuckDuckGo) Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error) {
	var out duckDuckGoResponse

	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("format", "json").
		SetQueryParam("no_html", "1").
		SetResult(&out).
		Get("/")
	if err != nil {
		return nil, errors.ProviderFailureError(d.Name(), err)
	}
	if resp.IsError() {
		return nil, errors.ProviderFailureError(d.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}

	var results []retrieval.RawResult

	// The abstract, when present, is the best answer.
	if out.AbstractText != "" {
		results = append(results, retrieval.RawResult{
			ID:      hash.DocumentID(out.AbstractURL, d.Name(), out.Heading),
			Content: out.AbstractText,
			Meta: retrieval.ResultMeta{
				URL:      out.AbstractURL,
				Title:    out.Heading,
				Provider: d.Name(),
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: scoreForRank(0),
		})
	}

	for _, topic := range out.RelatedTopics {
		if len(results) >= topK {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, retrieval.RawResult{
			ID:      hash.DocumentID(topic.FirstURL, d.Name(), topic.Text),
			Content: topic.Text,
			Meta: retrieval.ResultMeta{
				URL:      topic.FirstURL,
				Title:    topic.Text,
				Provider: d.Name(),
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: scoreForRank(len(results)),
		})
	}

	return results, nil
}
