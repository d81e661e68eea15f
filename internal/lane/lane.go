// Package lane implements the retrieval lane executors. Each executor wraps
// one retrieval modality behind a uniform contract; the caller bounds the
// call with a context deadline and the executor returns whatever it gathered
// rather than overrunning.
package lane

import (
	"context"

	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Outcome is what a lane execution produced, beyond the raw results.
type Outcome struct {
	// Results are the raw results, possibly empty.
	Results []retrieval.RawResult

	// Provider names the upstream that served the results, when a single
	// upstream did.
	Provider string

	// FallbackUsed reports that a fallback batch served the results after
	// an earlier batch came back empty.
	FallbackUsed bool

	// Keyless reports that the serving batch ran without credentials.
	Keyless bool

	// BreakerTripped reports that at least one provider was skipped because
	// its circuit breaker was open.
	BreakerTripped bool
}

// Executor runs one retrieval modality.
type Executor interface {
	// Lane identifies the modality.
	Lane() retrieval.Lane

	// Execute runs the query. Provider failures are handled inside the
	// executor; an error return means the whole lane produced nothing
	// usable.
	Execute(ctx context.Context, query string, topK int) (Outcome, error)
}

// truncate keeps the first n results in source order.
func truncate(results []retrieval.RawResult, n int) []retrieval.RawResult {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}
