package fusion

import (
	"net/url"
	"strings"

	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// group is one deduplicated document during fusion. The first occurrence
// fixes the content and metadata; later duplicates only contribute scores.
type group struct {
	first        retrieval.RawResult
	sourceScores map[string]float64
	sourceTypes  []string
	urlKey       string
	titleKey     string
	titleWords   map[string]struct{}
	order        int
}

// jaccardThreshold is the minimum word-set similarity for two titles to be
// considered the same document.
const jaccardThreshold = 0.8

// dedup groups raw results across lanes. Two results are the same document
// when their URLs share domain+path, or their normalized titles are equal,
// a substring of one another, or have Jaccard word-set similarity above the
// threshold. First occurrence wins; duplicates merge their score into the
// existing group.
func dedup(laneResults []retrieval.LaneResult) []*group {
	var groups []*group
	byURL := make(map[string]*group)

	for _, lr := range laneResults {
		for _, r := range lr.Results {
			r.Score = normalizeScore(r.Score)
			source := r.Meta.Source
			if source == "" {
				source = string(lr.Lane)
			}

			g := match(groups, byURL, r)
			if g == nil {
				g = newGroup(r, len(groups))
				groups = append(groups, g)
				if g.urlKey != "" {
					byURL[g.urlKey] = g
				}
			}
			g.addSource(source, r.Score)
		}
	}

	return groups
}

// match finds the existing group this result duplicates, or nil.
func match(groups []*group, byURL map[string]*group, r retrieval.RawResult) *group {
	if key := urlKey(r.Meta.URL); key != "" {
		if g, ok := byURL[key]; ok {
			return g
		}
	}

	title := normalizeTitle(r.Meta.Title)
	if title == "" {
		return nil
	}
	words := wordSet(title)

	for _, g := range groups {
		if g.titleKey == "" {
			continue
		}
		if g.titleKey == title ||
			strings.Contains(g.titleKey, title) ||
			strings.Contains(title, g.titleKey) {
			return g
		}
		if jaccard(g.titleWords, words) > jaccardThreshold {
			return g
		}
	}

	return nil
}

func newGroup(r retrieval.RawResult, order int) *group {
	title := normalizeTitle(r.Meta.Title)
	return &group{
		first:        r,
		sourceScores: make(map[string]float64),
		urlKey:       urlKey(r.Meta.URL),
		titleKey:     title,
		titleWords:   wordSet(title),
		order:        order,
	}
}

// addSource merges a per-source score into the group. A repeat sighting from
// the same source keeps the higher score.
func (g *group) addSource(source string, score float64) {
	if prev, ok := g.sourceScores[source]; !ok {
		g.sourceScores[source] = score
		g.sourceTypes = append(g.sourceTypes, source)
	} else if score > prev {
		g.sourceScores[source] = score
	}
}

// bestScore is the highest normalized score any source reported.
func (g *group) bestScore() float64 {
	best := 0.0
	for _, s := range g.sourceScores {
		if s > best {
			best = s
		}
	}
	return best
}

// fused converts the group to its external form.
func (g *group) fused(combined float64) retrieval.FusedResult {
	id := g.first.ID
	if id == "" {
		id = hash.DocumentID(g.first.Meta.URL, g.first.Meta.Provider, g.first.Meta.Title)
	}
	return retrieval.FusedResult{
		DocumentID:    id,
		Content:       g.first.Content,
		CombinedScore: combined,
		SourceScores:  g.sourceScores,
		SourceTypes:   g.sourceTypes,
		Meta:          g.first.Meta,
	}
}

// normalizeScore maps provider scores into [0,1]. Scores above 1 are assumed
// to be on a 0-100 scale.
func normalizeScore(score float64) float64 {
	if score > 1 {
		score = score / 100
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// urlKey reduces a URL to lower-cased domain+path, ignoring scheme, query,
// and fragment.
func urlKey(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	return strings.ToLower(u.Host + strings.TrimSuffix(u.Path, "/"))
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
