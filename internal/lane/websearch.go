package lane

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fusesearch/fuse-search/internal/breaker"
	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/provider"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// WebSearch fans the query out to external web search providers, keyed
// providers first and keyless fallbacks after. Providers inside a batch run
// in parallel; the first batch that yields at least one result wins and
// later batches are never contacted.
type WebSearch struct {
	providers       map[string]provider.WebProvider
	manager         *provider.Manager
	breakers        *breaker.Registry
	providerTimeout time.Duration
	log             *logger.Logger
}

// NewWebSearch creates the web search lane executor.
func NewWebSearch(providers map[string]provider.WebProvider, manager *provider.Manager, breakers *breaker.Registry, providerTimeout time.Duration, log *logger.Logger) *WebSearch {
	if providerTimeout <= 0 {
		providerTimeout = 2 * time.Second
	}
	return &WebSearch{
		providers:       providers,
		manager:         manager,
		breakers:        breakers,
		providerTimeout: providerTimeout,
		log:             log.WithLane(string(retrieval.LaneWebSearch)),
	}
}

// Lane implements Executor.
func (w *WebSearch) Lane() retrieval.Lane { return retrieval.LaneWebSearch }

// Execute implements Executor.
func (w *WebSearch) Execute(ctx context.Context, query string, topK int) (Outcome, error) {
	batches := w.manager.Order(retrieval.LaneWebSearch)
	if len(batches) == 0 {
		return Outcome{}, errors.LaneUnavailableError(string(retrieval.LaneWebSearch), "no providers configured")
	}

	var out Outcome
	for i, batch := range batches {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		results, tripped := w.runBatch(ctx, batch, query, topK)
		out.BreakerTripped = out.BreakerTripped || tripped
		if len(results) == 0 {
			continue
		}

		out.Results = truncate(results, topK)
		out.FallbackUsed = i > 0
		out.Keyless = !w.manager.HasCredential(batch[0])
		if len(batch) == 1 {
			out.Provider = batch[0]
		}
		return out, nil
	}

	// Every batch came back empty. Not an error: the lane ran and found
	// nothing, or every provider failed and logged its own failure.
	return out, nil
}

// runBatch queries every provider in the batch in parallel and merges what
// they return in batch declaration order, so the merged slice does not
// depend on which provider answered first. Individual provider failures are
// logged and recorded on the provider's breaker but never abort the batch.
func (w *WebSearch) runBatch(ctx context.Context, batch []string, query string, topK int) ([]retrieval.RawResult, bool) {
	perProvider := make([][]retrieval.RawResult, len(batch))
	tripped := false

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range batch {
		p, ok := w.providers[name]
		if !ok {
			w.log.Warn("provider not registered", "provider", name)
			continue
		}

		br := w.breakers.Get(name)
		if !br.CanExecute() {
			w.log.Warn("provider skipped, circuit open", "provider", name)
			tripped = true
			continue
		}

		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, w.providerTimeout)
			defer cancel()

			start := time.Now()
			results, err := p.Search(pctx, query, topK)
			if err != nil {
				br.RecordFailure()
				w.log.Warn("provider search failed",
					"provider", p.Name(),
					"latency_ms", time.Since(start).Milliseconds(),
					"error", err)
				return nil
			}

			br.RecordSuccess()
			perProvider[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var merged []retrieval.RawResult
	for _, results := range perProvider {
		merged = append(merged, results...)
	}
	return merged, tripped
}
