// Package retrieval defines the shared data model for the hybrid-retrieval
// pipeline: lanes, raw lane results, and the fused response contract.
package retrieval

import (
	"github.com/fusesearch/fuse-search/internal/pkg/errors"
)

// Lane identifies one retrieval modality.
type Lane string

// Retrieval lanes.
const (
	LaneWebSearch      Lane = "web_search"
	LaneVectorSearch   Lane = "vector_search"
	LaneKnowledgeGraph Lane = "knowledge_graph"
)

// AllLanes lists every lane in declaration order.
func AllLanes() []Lane {
	return []Lane{LaneWebSearch, LaneVectorSearch, LaneKnowledgeGraph}
}

// LaneStatus is the health of a lane, updated after each execution.
type LaneStatus string

// Lane statuses.
const (
	StatusAvailable   LaneStatus = "available"
	StatusDegraded    LaneStatus = "degraded"
	StatusUnavailable LaneStatus = "unavailable"
	StatusTimeout     LaneStatus = "timeout"
)

// Response methods.
const (
	MethodOrchestratedHybrid = "orchestrated_hybrid"
	MethodNoLanesAvailable   = "no_lanes_available"
	MethodError              = "error"
)

// Per-lane result caps.
const (
	// MaxVectorResults caps vector lane passages.
	MaxVectorResults = 5

	// MaxGraphResults caps combined entities + relationships.
	MaxGraphResults = 6

	// MaxGraphEntities and MaxGraphRelationships split the graph cap.
	MaxGraphEntities      = 3
	MaxGraphRelationships = 3
)

// Request is a retrieval request. Immutable for the duration of a call.
type Request struct {
	// Query is the retrieval query text.
	Query string `json:"query"`

	// MaxResults is the number of fused results to return (1-100).
	MaxResults int `json:"max_results"`

	// Classification carries optional query classification hints.
	Classification map[string]string `json:"classification,omitempty"`

	// Context carries optional caller context.
	Context map[string]string `json:"context,omitempty"`
}

// Validate checks the request against the external contract.
func (r *Request) Validate() error {
	if r.Query == "" {
		return errors.InvalidRequestError("query is required")
	}
	if r.MaxResults < 1 || r.MaxResults > 100 {
		return errors.InvalidRequestError("max_results must be between 1 and 100")
	}
	return nil
}

// ResultMeta holds the common metadata for a raw result. Provider-specific
// fields that have no stable schema go in Extra.
type ResultMeta struct {
	URL      string            `json:"url,omitempty"`
	Title    string            `json:"title,omitempty"`
	Provider string            `json:"provider,omitempty"`
	Source   string            `json:"source"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// RawResult is a single result produced by a lane executor. Ownership
// transfers to fusion once the lane returns.
type RawResult struct {
	// ID is a deterministic document identifier.
	ID string `json:"id"`

	// Content is the result text (snippet, passage, or fact).
	Content string `json:"content"`

	// Meta is the result metadata.
	Meta ResultMeta `json:"metadata"`

	// Score is the provider-reported relevance in [0,1], or a raw score
	// normalized during fusion.
	Score float64 `json:"score"`
}

// LaneResult is the outcome of one lane execution. Created once per
// orchestration call and read-only afterwards.
type LaneResult struct {
	// Lane is the lane that produced this result.
	Lane Lane `json:"lane"`

	// Status is the outcome of the execution.
	Status LaneStatus `json:"status"`

	// Results are the raw results, possibly empty.
	Results []RawResult `json:"results"`

	// LatencyMs is the observed lane latency; equals the lane budget on
	// timeout.
	LatencyMs int64 `json:"latency_ms"`

	// Err is the captured error message, if any.
	Err string `json:"error,omitempty"`

	// FallbackUsed reports whether a fallback batch served the results
	// after an earlier batch came back empty.
	FallbackUsed bool `json:"fallback_used,omitempty"`

	// Keyless reports whether the serving providers ran without credentials.
	Keyless bool `json:"keyless,omitempty"`

	// BreakerTripped reports whether any provider was skipped because its
	// circuit breaker was open.
	BreakerTripped bool `json:"breaker_tripped,omitempty"`
}

// FusedResult is a deduplicated, score-fused document in the final ranking.
type FusedResult struct {
	// DocumentID is the deduplication key's stable identifier.
	DocumentID string `json:"document_id"`

	// Content is the winning occurrence's content.
	Content string `json:"content"`

	// CombinedScore is the fused relevance in [0,1].
	CombinedScore float64 `json:"combined_score"`

	// SourceScores maps source type to that source's normalized score.
	SourceScores map[string]float64 `json:"source_scores"`

	// SourceTypes lists the sources that corroborated this document, in
	// first-seen order.
	SourceTypes []string `json:"source_types"`

	// Meta is the winning occurrence's metadata.
	Meta ResultMeta `json:"metadata"`
}

// Response is the final contract returned to the gateway.
type Response struct {
	// Sources are the fused, ranked results.
	Sources []FusedResult `json:"sources"`

	// Method describes how the response was produced: orchestrated_hybrid,
	// no_lanes_available, or error.
	Method string `json:"method"`

	// TotalResults is len(Sources).
	TotalResults int `json:"total_results"`

	// RelevanceScores lists the combined scores in rank order.
	RelevanceScores []float64 `json:"relevance_scores"`

	// Limit echoes the request's max results.
	Limit int `json:"limit"`

	// LanesExecuted lists the lanes that ran for this request.
	LanesExecuted []string `json:"lanes_executed"`

	// LatencyMs is the end-to-end orchestration latency.
	LatencyMs int64 `json:"latency_ms"`
}

// EmptyResponse builds a structurally valid response with zero results.
func EmptyResponse(method string, limit int) *Response {
	return &Response{
		Sources:         []FusedResult{},
		Method:          method,
		TotalResults:    0,
		RelevanceScores: []float64{},
		Limit:           limit,
		LanesExecuted:   []string{},
	}
}
