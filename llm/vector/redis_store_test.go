package vector

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, dim int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	store := newRedisStoreWithClient(client, RedisConfig{
		StoreConfig: StoreConfig{EmbeddingDim: dim, IndexName: "news_articles", KeyPrefix: "news:"},
	})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreUpsertWritesHash(t *testing.T) {
	store, mr := newTestRedisStore(t, 2)

	err := store.Upsert(context.Background(), Point{
		ID:     42,
		Vector: []float32{0.5, -1},
		Payload: map[string]any{
			"id":      "article-42",
			"title":   "Markets",
			"content": "Stocks rose.",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Markets", mr.HGet("news:42", "title"))
	assert.Equal(t, "Stocks rose.", mr.HGet("news:42", "content"))
	assert.JSONEq(t, `{"id":"article-42","title":"Markets","content":"Stocks rose."}`, mr.HGet("news:42", "payload"))

	raw := []byte(mr.HGet("news:42", "vector"))
	require.Len(t, raw, 8)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[0:])))
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])))
}

func TestRedisStoreUpsertRejectsWrongDimension(t *testing.T) {
	store, _ := newTestRedisStore(t, 3)
	err := store.Upsert(context.Background(), Point{ID: 1, Vector: []float32{1}})
	assert.ErrorContains(t, err, "dimension 1")
}

func TestRedisStoreParseSearchResults(t *testing.T) {
	store, _ := newTestRedisStore(t, 2)

	reply := []interface{}{
		int64(2),
		"news:7", []interface{}{"payload", `{"id":"a","title":"A"}`, "score", "0.25"},
		"news:9", []interface{}{"score", "0.5", "payload", `{"id":"b","title":"B"}`},
	}

	hits, err := store.parseSearchResults(reply)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, uint64(7), hits[0].ID)
	assert.InDelta(t, 0.75, hits[0].Score, 1e-6)
	assert.Equal(t, "a", hits[0].Payload["id"])

	assert.Equal(t, uint64(9), hits[1].ID)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)
	assert.Equal(t, "B", hits[1].Payload["title"])
}

func TestRedisStoreParseSearchResultsRejectsForeignKeys(t *testing.T) {
	store, _ := newTestRedisStore(t, 2)
	_, err := store.parseSearchResults([]interface{}{int64(1), "other:x", []interface{}{}})
	assert.Error(t, err)
}
