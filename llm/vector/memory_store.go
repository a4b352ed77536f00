package vector

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Index with brute-force cosine search. It
// backs local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	dim    int
	points map[uint64]Point
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, points: make(map[uint64]Point)}
}

// EnsureCollection is a no-op.
func (s *MemoryStore) EnsureCollection(context.Context) error { return nil }

// Upsert stores copies of the points, replacing any with the same id.
func (s *MemoryStore) Upsert(_ context.Context, points ...Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if len(p.Vector) != s.dim {
			return fmt.Errorf("point %d has dimension %d, want %d", p.ID, len(p.Vector), s.dim)
		}
		p.Vector = append([]float32(nil), p.Vector...)
		p.Payload = maps.Clone(p.Payload)
		s.points[p.ID] = p
	}
	return nil
}

// Search ranks all points by cosine similarity
func (s *MemoryStore) Search(_ context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	hits := make([]Hit, 0, len(s.points))
	for _, p := range s.points {
		hits = append(hits, Hit{ID: p.ID, Score: cosineSimilarity(vector, p.Vector), Payload: maps.Clone(p.Payload)})
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of stored points.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// cosineSimilarity calculates the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
