package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

const wikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia is the Wikipedia search provider (keyless).
type Wikipedia struct {
	client *resty.Client
}

// NewWikipedia creates a Wikipedia provider. No credential is required.
func NewWikipedia() *Wikipedia {
	client := resty.New().
		SetBaseURL(wikipediaBaseURL).
		SetHeader("Accept", "application/json")

	return &Wikipedia{client: client}
}

// Name implements WebProvider.
func (w *Wikipedia) Name() string { return "wikipedia" }

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			PageID  int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// Search implements WebProvider.
func (w *Wikipedia) Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error) {
	var out wikipediaResponse

	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("action", "query").
		SetQueryParam("list", "search").
		SetQueryParam("srsearch", query).
		SetQueryParam("srlimit", fmt.Sprintf("%d", topK)).
		SetQueryParam("format", "json").
		SetResult(&out).
		Get("")
	if err != nil {
		return nil, errors.ProviderFailureError(w.Name(), err)
	}
	if resp.IsError() {
		return nil, errors.ProviderFailureError(w.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}

	results := make([]retrieval.RawResult, 0, len(out.Query.Search))
	for i, r := range out.Query.Search {
		if i >= topK {
			break
		}
		pageURL := fmt.Sprintf("https://en.wikipedia.org/?curid=%d", r.PageID)
		results = append(results, retrieval.RawResult{
			ID:      hash.DocumentID(pageURL, w.Name(), r.Title),
			Content: r.Snippet,
			Meta: retrieval.ResultMeta{
				URL:      pageURL,
				Title:    r.Title,
				Provider: w.Name(),
				Source:   string(retrieval.LaneWebSearch),
			},
			Score: scoreForRank(i),
		})
	}
	return results, nil
}
