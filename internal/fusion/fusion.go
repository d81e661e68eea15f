// Package fusion deduplicates raw results across retrieval lanes and
// combines per-lane scores into one ranked list.
package fusion

import (
	"fmt"
	"sort"

	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Fusion strategies.
const (
	StrategyWeightedMerge = "weighted_merge"
	StrategyPriorityBased = "priority_based"
	StrategySimpleMerge   = "simple_merge"
)

// Weights are the per-source weights used by the weighted merge.
type Weights struct {
	Web    float64
	Vector float64
	Graph  float64
}

// DefaultWeights returns the standard source weights.
func DefaultWeights() Weights {
	return Weights{Web: 1.0, Vector: 0.9, Graph: 0.8}
}

// sourcePriority orders sources for the priority strategy, strongest first.
var sourcePriority = []string{
	string(retrieval.LaneKnowledgeGraph),
	string(retrieval.LaneVectorSearch),
	string(retrieval.LaneWebSearch),
}

// Fuser deduplicates and ranks results from multiple lanes.
type Fuser struct {
	strategy string
	weights  Weights
	log      *logger.Logger
}

// New creates a fuser with the given strategy.
func New(strategy string, weights Weights, log *logger.Logger) (*Fuser, error) {
	switch strategy {
	case StrategyWeightedMerge, StrategyPriorityBased, StrategySimpleMerge:
	case "":
		strategy = StrategyWeightedMerge
	default:
		return nil, fmt.Errorf("unknown fusion strategy %q", strategy)
	}

	if weights == (Weights{}) {
		weights = DefaultWeights()
	}

	return &Fuser{strategy: strategy, weights: weights, log: log}, nil
}

// Strategy returns the configured strategy name.
func (f *Fuser) Strategy() string { return f.strategy }

// Fuse deduplicates the lane results, applies the fusion strategy, and
// returns at most maxResults fused results. Deterministic for a given input:
// ties keep first-seen order.
func (f *Fuser) Fuse(laneResults []retrieval.LaneResult, maxResults int) []retrieval.FusedResult {
	groups := dedup(laneResults)
	if len(groups) == 0 {
		return []retrieval.FusedResult{}
	}

	var fused []retrieval.FusedResult
	switch f.strategy {
	case StrategyPriorityBased:
		fused = f.priorityBased(groups, maxResults)
	case StrategySimpleMerge:
		fused = f.simpleMerge(groups)
	default:
		fused = f.weightedMerge(groups)
	}

	if maxResults > 0 && len(fused) > maxResults {
		fused = fused[:maxResults]
	}
	return fused
}

// weightedMerge combines each group's per-source scores into a weighted
// average, boosted up to 2x by corroboration across sources.
func (f *Fuser) weightedMerge(groups []*group) []retrieval.FusedResult {
	fused := make([]retrieval.FusedResult, 0, len(groups))
	for _, g := range groups {
		// Accumulate in first-seen source order so the float sums, and with
		// them the fused output, are identical across runs.
		var scoreSum, weightSum float64
		for _, source := range g.sourceTypes {
			w := f.sourceWeight(source)
			scoreSum += g.sourceScores[source] * w
			weightSum += w
		}

		combined := 0.0
		if weightSum > 0 {
			boost := 0.2 * float64(len(g.sourceScores))
			if boost > 1 {
				boost = 1
			}
			combined = scoreSum / weightSum * (1 + boost)
			if combined > 1 {
				combined = 1
			}
		}

		fused = append(fused, g.fused(combined))
	}

	sortByScore(fused)
	return fused
}

// priorityBased partitions groups by their first-seen source, ranks sources
// by fixed priority, and interleaves an equal share of each source's top
// results.
func (f *Fuser) priorityBased(groups []*group, maxResults int) []retrieval.FusedResult {
	bySource := make(map[string][]*group)
	for _, g := range groups {
		source := ""
		if len(g.sourceTypes) > 0 {
			source = g.sourceTypes[0]
		}
		bySource[source] = append(bySource[source], g)
	}

	order := make([]string, 0, len(bySource))
	for _, source := range sourcePriority {
		if len(bySource[source]) > 0 {
			order = append(order, source)
		}
	}
	// Sources outside the known priority list rank last, in first-seen order.
	seen := make(map[string]bool, len(order))
	for _, s := range order {
		seen[s] = true
	}
	for _, g := range groups {
		if len(g.sourceTypes) > 0 && !seen[g.sourceTypes[0]] {
			order = append(order, g.sourceTypes[0])
			seen[g.sourceTypes[0]] = true
		}
	}

	for _, source := range order {
		part := bySource[source]
		sort.SliceStable(part, func(i, j int) bool {
			return part[i].bestScore() > part[j].bestScore()
		})
	}

	if maxResults <= 0 {
		maxResults = len(groups)
	}
	share := maxResults / len(order)
	if share < 1 {
		share = 1
	}

	// Each source contributes its share first; any slots left over drain the
	// remaining results in priority order.
	var picked []*group
	taken := make(map[string]int, len(order))
	for _, source := range order {
		part := bySource[source]
		n := share
		if n > len(part) {
			n = len(part)
		}
		picked = append(picked, part[:n]...)
		taken[source] = n
	}
	for _, source := range order {
		part := bySource[source]
		for _, g := range part[taken[source]:] {
			if len(picked) >= maxResults {
				break
			}
			picked = append(picked, g)
		}
	}
	if len(picked) > maxResults {
		picked = picked[:maxResults]
	}

	fused := make([]retrieval.FusedResult, 0, len(picked))
	for _, g := range picked {
		fused = append(fused, g.fused(g.bestScore()))
	}
	return fused
}

// simpleMerge ranks every deduplicated result by its best raw score.
func (f *Fuser) simpleMerge(groups []*group) []retrieval.FusedResult {
	fused := make([]retrieval.FusedResult, 0, len(groups))
	for _, g := range groups {
		fused = append(fused, g.fused(g.bestScore()))
	}
	sortByScore(fused)
	return fused
}

func (f *Fuser) sourceWeight(source string) float64 {
	switch source {
	case string(retrieval.LaneWebSearch):
		return f.weights.Web
	case string(retrieval.LaneVectorSearch):
		return f.weights.Vector
	case string(retrieval.LaneKnowledgeGraph):
		return f.weights.Graph
	default:
		return 1.0
	}
}

// sortByScore sorts descending by combined score; the stable sort preserves
// first-seen order for ties.
func sortByScore(fused []retrieval.FusedResult) {
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].CombinedScore > fused[j].CombinedScore
	})
}
