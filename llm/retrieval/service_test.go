package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/llm"
	"newsrag/llm/vector"
)

const testDim = 256

// wordEmbedder is a deterministic bag-of-words embedder.
type wordEmbedder struct {
	mu    sync.Mutex
	modes []vector.Mode
	fail  func(text string) error
}

func (e *wordEmbedder) Embed(_ context.Context, mode vector.Mode, text string) ([]float32, error) {
	e.mu.Lock()
	e.modes = append(e.modes, mode)
	e.mu.Unlock()

	if e.fail != nil {
		if err := e.fail(text); err != nil {
			return nil, err
		}
	}

	vec := make([]float32, testDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDim]++
	}
	return vec, nil
}

type failingIndex struct {
	*vector.MemoryStore
	upsertErr error
	searchErr error
	hits      []vector.Hit
}

func (f *failingIndex) Upsert(ctx context.Context, points ...vector.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.MemoryStore.Upsert(ctx, points...)
}

func (f *failingIndex) Search(ctx context.Context, vec []float32, limit int) ([]vector.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.hits != nil {
		return f.hits, nil
	}
	return f.MemoryStore.Search(ctx, vec, limit)
}

var fixedNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestService(emb Embedder, idx vector.Index, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(emb, idx, zerolog.Nop(), opts...)
}

func TestIndexThenSearchByTitle(t *testing.T) {
	ctx := context.Background()
	emb := &wordEmbedder{}
	svc := newTestService(emb, vector.NewMemoryStore(testDim))

	docs := []llm.Document{
		{ID: "markets-1", Title: "Stock markets rally on tech earnings", Content: "Shares climbed across Asia."},
		{ID: "cricket-7", Title: "India beat Australia in final over", Content: "A thrilling chase in Mumbai."},
		{ID: "weather-3", Title: "Monsoon rains flood coastal towns", Content: "Evacuations continue."},
	}
	require.NoError(t, svc.IndexDocuments(ctx, docs))

	for _, doc := range docs {
		results, err := svc.Search(ctx, doc.Title, 3)
		require.NoError(t, err)

		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.ID)
		}
		assert.Contains(t, ids, doc.ID)
		assert.Equal(t, doc.ID, results[0].ID)
		assert.Equal(t, doc.Title, results[0].Document.Title)
		assert.Equal(t, doc.Content, results[0].Document.Content)
		assert.Equal(t, map[string]any{}, results[0].Document.Metadata)
		assert.True(t, fixedNow.Equal(results[0].Document.Timestamp))
	}

	assert.Contains(t, emb.modes, vector.ModePassage)
	assert.Contains(t, emb.modes, vector.ModeQuery)
}

func TestSearchDefaultsTopKAndKeepsIndexOrder(t *testing.T) {
	ctx := context.Background()
	idx := &failingIndex{MemoryStore: vector.NewMemoryStore(testDim)}
	svc := newTestService(&wordEmbedder{}, idx)

	for i := 0; i < 8; i++ {
		require.NoError(t, svc.IndexDocument(ctx, llm.Document{
			ID:      string(rune('a' + i)),
			Title:   "news",
			Content: strings.Repeat("x ", i+1),
		}))
	}

	results, err := svc.Search(ctx, "news", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)

	ts := fixedNow.Format(time.RFC3339Nano)
	idx.hits = []vector.Hit{
		{ID: 1, Score: 0.2, Payload: map[string]any{"id": "low", "title": "t", "content": "c", "timestamp": ts}},
		{ID: 2, Score: 0.9, Payload: map[string]any{"id": "high", "title": "t", "content": "c", "timestamp": ts}},
	}
	results, err = svc.Search(ctx, "news", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "low", results[0].ID)
	assert.Equal(t, "high", results[1].ID)
}

func TestSearchRejectsMalformedPayload(t *testing.T) {
	idx := &failingIndex{
		MemoryStore: vector.NewMemoryStore(testDim),
		hits: []vector.Hit{
			{ID: 1, Score: 0.5, Payload: map[string]any{"id": "x", "content": "c", "timestamp": fixedNow.Format(time.RFC3339)}},
		},
	}
	svc := newTestService(&wordEmbedder{}, idx)

	_, err := svc.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Equal(t, llm.KindSearch, llm.KindOf(err))
	assert.Contains(t, err.Error(), `"title"`)
}

func TestErrorKinds(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	embFail := newTestService(&wordEmbedder{fail: func(string) error { return boom }}, vector.NewMemoryStore(testDim))
	err := embFail.IndexDocument(ctx, llm.Document{ID: "a", Title: "t", Content: "c"})
	assert.Equal(t, llm.KindEmbedding, llm.KindOf(err))
	_, err = embFail.Search(ctx, "q", 5)
	assert.Equal(t, llm.KindEmbedding, llm.KindOf(err))

	idx := &failingIndex{MemoryStore: vector.NewMemoryStore(testDim), upsertErr: boom, searchErr: boom}
	idxFail := newTestService(&wordEmbedder{}, idx)
	err = idxFail.IndexDocument(ctx, llm.Document{ID: "a", Title: "t", Content: "c"})
	assert.Equal(t, llm.KindIndex, llm.KindOf(err))
	assert.ErrorIs(t, err, boom)
	_, err = idxFail.Search(ctx, "q", 5)
	assert.Equal(t, llm.KindSearch, llm.KindOf(err))
}

func TestIndexDocumentsFailsFast(t *testing.T) {
	ctx := context.Background()
	var attempts atomic.Int32
	emb := &wordEmbedder{fail: func(text string) error {
		attempts.Add(1)
		if strings.HasPrefix(text, "doc-12") {
			return errors.New("rate limited")
		}
		return nil
	}}
	store := vector.NewMemoryStore(testDim)
	svc := newTestService(emb, store, WithBatchSize(10))

	docs := make([]llm.Document, 0, 35)
	for i := 0; i < 35; i++ {
		id := "doc-" + strconv.Itoa(i)
		docs = append(docs, llm.Document{ID: id, Title: id, Content: "body"})
	}

	err := svc.IndexDocuments(ctx, docs)
	require.Error(t, err)
	assert.Equal(t, llm.KindEmbedding, llm.KindOf(err))

	// The first batch succeeded, the failing second batch stopped the rest.
	assert.GreaterOrEqual(t, store.Len(), 10)
	assert.Less(t, store.Len(), 20)
	assert.LessOrEqual(t, attempts.Load(), int32(20))
}
