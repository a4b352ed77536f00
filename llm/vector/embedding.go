package vector

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

// Mode selects the encoder used for a text. Passages and queries are
// embedded asymmetrically.
type Mode string

const (
	ModePassage Mode = "passage"
	ModeQuery   Mode = "query"
)

// EmbeddingService wraps one embedding model per mode for vector generation
type EmbeddingService struct {
	embedders map[Mode]embedding.Embedder
	dim       int
}

// NewEmbeddingService creates a new embedding service. Every returned vector
// must have exactly dim components.
func NewEmbeddingService(passage, query embedding.Embedder, dim int) *EmbeddingService {
	if dim <= 0 {
		dim = 768
	}
	return &EmbeddingService{
		embedders: map[Mode]embedding.Embedder{
			ModePassage: passage,
			ModeQuery:   query,
		},
		dim: dim,
	}
}

// Embed generates an embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, mode Mode, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	embedder, ok := s.embedders[mode]
	if !ok || embedder == nil {
		return nil, fmt.Errorf("no embedder configured for mode %q", mode)
	}

	vectors, err := embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	if len(vectors[0]) != s.dim {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(vectors[0]), s.dim)
	}

	// Convert float64 to float32
	result := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		result[i] = float32(v)
	}

	return result, nil
}
