// Package provider manages upstream retrieval providers: the ordering of
// keyed and keyless providers into fallback batches, and the concrete
// web-search provider clients.
package provider

import (
	"context"

	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// WebProvider is a single web-search upstream.
type WebProvider interface {
	// Name is the stable provider identifier used for breakers and metrics.
	Name() string

	// Search runs the query and returns raw results. Implementations respect
	// the ctx deadline and return whatever the upstream produced.
	Search(ctx context.Context, query string, topK int) ([]retrieval.RawResult, error)
}

// Table is the static provider table for one lane: keyed providers first,
// keyless providers as the safety net. Loaded once at startup, read-only.
type Table struct {
	// Keyed providers require a configured credential.
	Keyed []string

	// Keyless providers are always available.
	Keyless []string
}

// scoreForRank synthesizes a descending [0,1] score for providers that report
// only rank order.
func scoreForRank(rank int) float64 {
	score := 1.0 - 0.05*float64(rank)
	if score < 0.1 {
		score = 0.1
	}
	return score
}
