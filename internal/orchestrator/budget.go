package orchestrator

import (
	"fmt"
	"time"

	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Budget is the latency budget for one retrieval. Fixed at construction,
// read-only afterwards.
type Budget struct {
	// Total bounds the whole retrieval in sequential mode, and is the
	// outer request bound in parallel mode.
	Total time.Duration

	// Per-lane bounds.
	WebSearch      time.Duration
	VectorSearch   time.Duration
	KnowledgeGraph time.Duration

	// Fusion bounds the post-collection fusion step.
	Fusion time.Duration
}

// BudgetFromConfig converts the millisecond config values.
func BudgetFromConfig(cfg config.BudgetConfig) Budget {
	return Budget{
		Total:          time.Duration(cfg.TotalMs) * time.Millisecond,
		WebSearch:      time.Duration(cfg.WebSearchMs) * time.Millisecond,
		VectorSearch:   time.Duration(cfg.VectorSearchMs) * time.Millisecond,
		KnowledgeGraph: time.Duration(cfg.KnowledgeGraphMs) * time.Millisecond,
		Fusion:         time.Duration(cfg.FusionMs) * time.Millisecond,
	}
}

// Validate checks that every per-lane budget fits inside the total.
func (b Budget) Validate() error {
	if b.Total <= 0 {
		return fmt.Errorf("total budget must be positive, got %s", b.Total)
	}
	for _, lb := range []struct {
		name string
		d    time.Duration
	}{
		{"web search", b.WebSearch},
		{"vector search", b.VectorSearch},
		{"knowledge graph", b.KnowledgeGraph},
		{"fusion", b.Fusion},
	} {
		if lb.d <= 0 {
			return fmt.Errorf("%s budget must be positive, got %s", lb.name, lb.d)
		}
		if lb.d > b.Total {
			return fmt.Errorf("%s budget %s exceeds total budget %s", lb.name, lb.d, b.Total)
		}
	}
	return nil
}

// ForLane returns the budget for one lane.
func (b Budget) ForLane(l retrieval.Lane) time.Duration {
	switch l {
	case retrieval.LaneWebSearch:
		return b.WebSearch
	case retrieval.LaneVectorSearch:
		return b.VectorSearch
	case retrieval.LaneKnowledgeGraph:
		return b.KnowledgeGraph
	default:
		return b.Total
	}
}
