package vector

import (
	"context"
)

// Point is a vector with its numeric id and payload, ready for upsert.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// Hit is a nearest-neighbour match. Higher Score means more similar.
type Hit struct {
	ID      uint64
	Score   float32
	Payload map[string]any
}

// Index defines the operations of a vector index backend
type Index interface {
	// EnsureCollection creates the collection or index if it does not exist
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or replaces points and waits until they are searchable
	Upsert(ctx context.Context, points ...Point) error

	// Search returns up to limit hits ordered by descending similarity
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// Close closes any connections or resources
	Close() error
}

// StoreConfig holds configuration shared by index implementations
type StoreConfig struct {
	// Embedding dimension (must match the embedding model)
	EmbeddingDim int

	// Collection or RediSearch index name
	IndexName string

	// Key prefix for stored points (RediSearch only)
	KeyPrefix string
}

// DefaultStoreConfig returns default configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		EmbeddingDim: 768,
		IndexName:    "news_articles",
		KeyPrefix:    "news:",
	}
}
