package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// Search performs a dense similarity search over a passage collection.
func (c *Client) Search(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Query:          qdrant.NewQueryDense(req.Vector),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	}

	if len(req.Tags) > 0 {
		queryPoints.Filter = buildTagFilter(req.Tags)
	}

	if req.ScoreThreshold != nil {
		queryPoints.ScoreThreshold = req.ScoreThreshold
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	return scoredPointsToResults(results), nil
}

// buildTagFilter builds a Qdrant filter matching any of the given tags.
func buildTagFilter(tags []string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "tags",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{
								Keywords: &qdrant.RepeatedStrings{
									Strings: tags,
								},
							},
						},
					},
				},
			},
		},
	}
}

// scoredPointsToResults converts Qdrant scored points to SearchResults.
func scoredPointsToResults(points []*qdrant.ScoredPoint) []SearchResult {
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, scoredPointToResult(p))
	}
	return results
}

// scoredPointToResult converts a single scored point to SearchResult.
func scoredPointToResult(p *qdrant.ScoredPoint) SearchResult {
	var id string
	switch v := p.Id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		id = v.Uuid
	case *qdrant.PointId_Num:
		id = fmt.Sprintf("%d", v.Num)
	}

	return SearchResult{
		ID:      id,
		Score:   p.Score,
		Payload: extractPayload(p.Payload),
	}
}

// extractPayload extracts PassagePayload from a Qdrant payload map.
func extractPayload(payload map[string]*qdrant.Value) PassagePayload {
	result := PassagePayload{
		Title:  getStringValue(payload, "title"),
		Text:   getStringValue(payload, "text"),
		URL:    getStringValue(payload, "url"),
		Source: getStringValue(payload, "source"),
		Tags:   getStringSliceValue(payload, "tags"),
	}

	if v := getStringValue(payload, "indexed_at"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			result.IndexedAt = t
		}
	}

	return result
}

func getStringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

func getStringSliceValue(payload map[string]*qdrant.Value, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	lv, ok := v.Kind.(*qdrant.Value_ListValue)
	if !ok {
		return nil
	}

	var out []string
	for _, item := range lv.ListValue.Values {
		if sv, ok := item.Kind.(*qdrant.Value_StringValue); ok {
			out = append(out, sv.StringValue)
		}
	}
	return out
}
