package lane

import (
	"context"
	"fmt"

	"github.com/fusesearch/fuse-search/internal/breaker"
	"github.com/fusesearch/fuse-search/internal/graph"
	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

const upstreamGraphStore = "graph_store"

// Entity and relationship matches carry distinct weights: an entity match is
// considered stronger evidence than a relationship match.
const (
	entityWeight       = 0.8
	relationshipWeight = 0.7
)

// KnowledgeGraph queries the graph store and converts entity and
// relationship matches into scored results. At most three of each are kept.
type KnowledgeGraph struct {
	querier  graph.Querier
	breakers *breaker.Registry
	log      *logger.Logger
}

// NewKnowledgeGraph creates the knowledge graph lane executor.
func NewKnowledgeGraph(querier graph.Querier, breakers *breaker.Registry, log *logger.Logger) *KnowledgeGraph {
	return &KnowledgeGraph{
		querier:  querier,
		breakers: breakers,
		log:      log.WithLane(string(retrieval.LaneKnowledgeGraph)),
	}
}

// Lane implements Executor.
func (k *KnowledgeGraph) Lane() retrieval.Lane { return retrieval.LaneKnowledgeGraph }

// Execute implements Executor.
func (k *KnowledgeGraph) Execute(ctx context.Context, query string, topK int) (Outcome, error) {
	if topK <= 0 || topK > retrieval.MaxGraphResults {
		topK = retrieval.MaxGraphResults
	}

	br := k.breakers.Get(upstreamGraphStore)
	if !br.CanExecute() {
		return Outcome{BreakerTripped: true}, errors.CircuitOpenError(upstreamGraphStore)
	}

	res, err := k.querier.Query(ctx, query, graph.ModeHybrid)
	if err != nil {
		br.RecordFailure()
		return Outcome{}, errors.GraphStoreError("graph query failed", err)
	}
	br.RecordSuccess()

	confidence := res.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 1
	}

	var results []retrieval.RawResult
	for i, e := range res.Entities {
		if i >= retrieval.MaxGraphEntities {
			break
		}
		results = append(results, entityResult(e, confidence))
	}
	for i, r := range res.Relationships {
		if i >= retrieval.MaxGraphRelationships {
			break
		}
		results = append(results, relationshipResult(r, confidence))
	}

	return Outcome{Results: truncate(results, topK), Provider: upstreamGraphStore}, nil
}

func entityResult(e graph.Entity, confidence float64) retrieval.RawResult {
	content := e.Name
	if e.Type != "" {
		content = fmt.Sprintf("%s (%s)", e.Name, e.Type)
	}
	if e.Description != "" {
		content += ": " + e.Description
	}

	id := e.ID
	if id == "" {
		id = hash.SHA256Short([]byte("entity:"+e.Name), 16)
	}

	return retrieval.RawResult{
		ID:      id,
		Content: content,
		Score:   confidence * entityWeight,
		Meta: retrieval.ResultMeta{
			Title:  e.Name,
			Source: string(retrieval.LaneKnowledgeGraph),
			Extra:  map[string]string{"kind": "entity", "type": e.Type},
		},
	}
}

func relationshipResult(r graph.Relationship, confidence float64) retrieval.RawResult {
	content := fmt.Sprintf("%s %s %s", r.Subject, r.Relation, r.Object)

	id := r.ID
	if id == "" {
		id = hash.SHA256Short([]byte("relationship:"+content), 16)
	}

	return retrieval.RawResult{
		ID:      id,
		Content: content,
		Score:   confidence * relationshipWeight,
		Meta: retrieval.ResultMeta{
			Title:  content,
			Source: string(retrieval.LaneKnowledgeGraph),
			Extra:  map[string]string{"kind": "relationship"},
		},
	}
}
