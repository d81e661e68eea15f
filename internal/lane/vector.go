package lane

import (
	"context"

	"github.com/fusesearch/fuse-search/internal/breaker"
	"github.com/fusesearch/fuse-search/internal/embed"
	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/qdrant"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Breaker upstream names for the vector lane capabilities.
const (
	upstreamVectorIndex = "vector_index"
	upstreamEmbedder    = "embedder"
)

// VectorSearcher is the slice of the vector store the lane needs.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
}

// VectorSearch embeds the query and searches the dense index. Results are
// capped at a fixed maximum regardless of the requested topK.
type VectorSearch struct {
	embedder   embed.Embedder
	store      VectorSearcher
	collection string
	breakers   *breaker.Registry
	log        *logger.Logger
}

// NewVectorSearch creates the vector search lane executor.
func NewVectorSearch(embedder embed.Embedder, store VectorSearcher, collection string, breakers *breaker.Registry, log *logger.Logger) *VectorSearch {
	return &VectorSearch{
		embedder:   embedder,
		store:      store,
		collection: collection,
		breakers:   breakers,
		log:        log.WithLane(string(retrieval.LaneVectorSearch)),
	}
}

// Lane implements Executor.
func (v *VectorSearch) Lane() retrieval.Lane { return retrieval.LaneVectorSearch }

// Execute implements Executor.
func (v *VectorSearch) Execute(ctx context.Context, query string, topK int) (Outcome, error) {
	if topK <= 0 || topK > retrieval.MaxVectorResults {
		topK = retrieval.MaxVectorResults
	}

	embBreaker := v.breakers.Get(upstreamEmbedder)
	if !embBreaker.CanExecute() {
		return Outcome{BreakerTripped: true}, errors.CircuitOpenError(upstreamEmbedder)
	}

	vector, err := v.embedder.Embed(ctx, query)
	if err != nil {
		embBreaker.RecordFailure()
		return Outcome{}, errors.Wrap(errors.CodeProviderFailure, "query embedding failed", err)
	}
	embBreaker.RecordSuccess()

	idxBreaker := v.breakers.Get(upstreamVectorIndex)
	if !idxBreaker.CanExecute() {
		return Outcome{BreakerTripped: true}, errors.CircuitOpenError(upstreamVectorIndex)
	}

	hits, err := v.store.Search(ctx, v.collection, qdrant.SearchRequest{
		Vector:      vector,
		Limit:       uint64(topK),
		WithPayload: true,
	})
	if err != nil {
		idxBreaker.RecordFailure()
		return Outcome{}, errors.VectorStoreError("vector search failed", err)
	}
	idxBreaker.RecordSuccess()

	results := make([]retrieval.RawResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, retrieval.RawResult{
			ID:      hit.ID,
			Content: hit.Payload.Text,
			Score:   float64(hit.Score),
			Meta: retrieval.ResultMeta{
				URL:    hit.Payload.URL,
				Title:  hit.Payload.Title,
				Source: string(retrieval.LaneVectorSearch),
			},
		})
	}

	return Outcome{Results: truncate(results, topK), Provider: upstreamVectorIndex}, nil
}
