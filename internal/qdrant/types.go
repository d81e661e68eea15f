// Package qdrant provides a wrapper around the Qdrant Go client
// with simplified APIs for passage retrieval.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a Qdrant collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed with "fuse_").
	Name string

	// VectorSize is the dimension of the dense vectors (e.g., 1536 for Jina).
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before HNSW index is built.
	IndexingThreshold uint64
}

// DefaultCollectionConfig returns sensible defaults for a passage collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		VectorSize:        1536,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
	}
}

// Point represents a passage to upsert into Qdrant.
type Point struct {
	// ID is the unique point identifier.
	ID string

	// Vector is the passage embedding.
	Vector []float32

	// Payload is the metadata associated with this passage.
	Payload PassagePayload
}

// PassagePayload contains the searchable metadata for a passage.
type PassagePayload struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source"`
	Tags      []string  `json:"tags,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

// SearchRequest defines parameters for a similarity search.
type SearchRequest struct {
	// Vector is the query embedding.
	Vector []float32

	// Limit is the maximum number of results to return.
	Limit uint64

	// Tags constrains the search to passages carrying any of these tags.
	Tags []string

	// WithPayload includes payload in results.
	WithPayload bool

	// ScoreThreshold filters results below this score.
	ScoreThreshold *float32
}

// SearchResult represents a single similarity search result.
type SearchResult struct {
	// ID is the point identifier.
	ID string

	// Score is the cosine similarity score.
	Score float32

	// Payload contains the passage metadata.
	Payload PassagePayload
}
