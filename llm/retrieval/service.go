// Package retrieval turns documents and queries into vectors and maps index
// hits back into typed search results.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"newsrag/llm"
	"newsrag/llm/vector"
)

const (
	// DefaultTopK is used when a search asks for zero or fewer results.
	DefaultTopK = 5
	// DefaultBatchSize bounds concurrent indexing in IndexDocuments.
	DefaultBatchSize = 10
)

// Embedder produces a vector for a text in the given mode.
type Embedder interface {
	Embed(ctx context.Context, mode vector.Mode, text string) ([]float32, error)
}

// Service indexes documents and answers similarity searches.
type Service struct {
	embedder  Embedder
	index     vector.Index
	batchSize int
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize overrides the number of documents indexed concurrently.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock sets the clock used for default document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a retrieval service over an embedder and an index.
func NewService(embedder Embedder, index vector.Index, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		log:       log.With().Str("component", "retrieval").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexDocument embeds a document in passage mode and upserts it under its
// stable numeric id.
func (s *Service) IndexDocument(ctx context.Context, doc llm.Document) error {
	const op = "retrieval.IndexDocument"

	doc = doc.WithDefaults(s.now().UTC())

	vec, err := s.embedder.Embed(ctx, vector.ModePassage, doc.EmbeddingText())
	if err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("embedding failed")
		return llm.E(llm.KindEmbedding, op, err)
	}

	point := vector.Point{
		ID:      vector.StableNumericID(doc.ID),
		Vector:  vec,
		Payload: toPayload(doc),
	}
	if err := s.index.Upsert(ctx, point); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("upsert failed")
		return llm.E(llm.KindIndex, op, err)
	}

	s.log.Debug().Str("document_id", doc.ID).Uint64("point_id", point.ID).Msg("document indexed")
	return nil
}

// IndexDocuments indexes docs in fixed-size batches. Documents within a batch
// are indexed concurrently and the batch is awaited before the next starts.
// The first failure stops all remaining batches; documents already indexed
// stay indexed.
func (s *Service) IndexDocuments(ctx context.Context, docs []llm.Document) error {
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))

		g, gctx := errgroup.WithContext(ctx)
		for _, doc := range docs[start:end] {
			g.Go(func() error {
				return s.IndexDocument(gctx, doc)
			})
		}
		if err := g.Wait(); err != nil {
			s.log.Error().Err(err).Int("batch_start", start).Int("total", len(docs)).Msg("batch indexing aborted")
			return err
		}
		s.log.Info().Int("indexed", end).Int("total", len(docs)).Msg("batch indexed")
	}
	return nil
}

// Search embeds the query in query mode and returns up to topK results in the
// order the index ranked them.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]llm.SearchResult, error) {
	const op = "retrieval.Search"

	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := s.embedder.Embed(ctx, vector.ModeQuery, query)
	if err != nil {
		s.log.Error().Err(err).Msg("query embedding failed")
		return nil, llm.E(llm.KindEmbedding, op, err)
	}

	hits, err := s.index.Search(ctx, vec, topK)
	if err != nil {
		s.log.Error().Err(err).Msg("vector search failed")
		return nil, llm.E(llm.KindSearch, op, err)
	}

	results := make([]llm.SearchResult, 0, len(hits))
	for _, hit := range hits {
		doc, err := fromPayload(hit.Payload)
		if err != nil {
			s.log.Error().Err(err).Uint64("point_id", hit.ID).Msg("malformed search payload")
			return nil, llm.E(llm.KindSearch, op, fmt.Errorf("point %d: %w", hit.ID, err))
		}
		results = append(results, llm.SearchResult{
			ID:       doc.ID,
			Score:    hit.Score,
			Document: doc,
		})
	}

	s.log.Debug().Int("top_k", topK).Int("results", len(results)).Msg("search completed")
	return results, nil
}
