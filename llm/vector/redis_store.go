package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	// Default index configuration
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in Redis hash
	fieldVector  = "vector"
	fieldTitle   = "title"
	fieldContent = "content"
	fieldPayload = "payload"
	fieldScore   = "score"
)

// RedisStore implements Index using Redis with RediSearch vector search
type RedisStore struct {
	client         *redis.Client
	config         StoreConfig
	efConstruction int
	m              int
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr           string
	Username       string
	Password       string
	DB             int
	PoolSize       int
	EFConstruction int
	M              int
	StoreConfig
}

// NewRedisStore creates a new Redis-based vector index. The connection is
// opened lazily on the first command.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}

	// FT.SEARCH replies are parsed in their RESP2 array form.
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})

	return newRedisStoreWithClient(client, cfg)
}

func newRedisStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client:         client,
		config:         cfg.StoreConfig,
		efConstruction: cfg.EFConstruction,
		m:              cfg.M,
	}
}

// EnsureCollection creates the HNSW vector index if it doesn't exist
func (s *RedisStore) EnsureCollection(ctx context.Context) error {
	indexName := s.config.IndexName
	if _, err := s.client.Do(ctx, "FT.INFO", indexName).Result(); err == nil {
		return nil
	}

	// FT.CREATE news_articles
	//   ON HASH PREFIX 1 "news:"
	//   SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM 768 DISTANCE_METRIC COSINE EF_CONSTRUCTION 200 M 16
	//          title TEXT
	//          content TEXT
	_, err := s.client.Do(ctx, "FT.CREATE", indexName,
		"ON", "HASH",
		"PREFIX", "1", s.config.KeyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.config.EmbeddingDim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.efConstruction),
		"M", strconv.Itoa(s.m),
		fieldTitle, "TEXT",
		fieldContent, "TEXT",
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Upsert writes each point as a hash in a single pipeline
func (s *RedisStore) Upsert(ctx context.Context, points ...Point) error {
	if len(points) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, p := range points {
		if len(p.Vector) != s.config.EmbeddingDim {
			return fmt.Errorf("point %d has dimension %d, want %d", p.ID, len(p.Vector), s.config.EmbeddingDim)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}

		title, _ := p.Payload[fieldTitle].(string)
		content, _ := p.Payload[fieldContent].(string)

		pipe.HSet(ctx, s.key(p.ID),
			fieldVector, encodeVector(p.Vector),
			fieldTitle, title,
			fieldContent, content,
			fieldPayload, payload,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search runs a KNN query and converts cosine distance into similarity
func (s *RedisStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	// FT.SEARCH news_articles "*=>[KNN 5 @vector $query_vector AS score]"
	//   PARAMS 2 query_vector "<bytes>"
	//   RETURN 2 payload score
	//   SORTBY score
	//   LIMIT 0 5
	//   DIALECT 2
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", limit, fieldVector, fieldScore)
	result, err := s.client.Do(ctx, "FT.SEARCH", s.config.IndexName, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(vector),
		"RETURN", "2", fieldPayload, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits, err := s.parseSearchResults(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return hits, nil
}

// parseSearchResults parses the RESP2 reply: count followed by (key, fields) pairs
func (s *RedisStore) parseSearchResults(result interface{}) ([]Hit, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format")
	}

	hits := make([]Hit, 0, len(values)/2)
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key type %T", values[i])
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(key, s.config.KeyPrefix), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected key %q: %w", key, err)
		}

		fields, ok := values[i+1].([]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected fields type %T", values[i+1])
		}

		hit := Hit{ID: id}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			value, _ := fields[j+1].(string)
			switch name {
			case fieldPayload:
				if err := json.Unmarshal([]byte(value), &hit.Payload); err != nil {
					return nil, fmt.Errorf("invalid payload for %q: %w", key, err)
				}
			case fieldScore:
				distance, err := strconv.ParseFloat(value, 32)
				if err != nil {
					return nil, fmt.Errorf("invalid score for %q: %w", key, err)
				}
				hit.Score = float32(1 - distance)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *RedisStore) key(id uint64) string {
	return s.config.KeyPrefix + strconv.FormatUint(id, 10)
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// encodeVector encodes a float32 vector as little-endian bytes, the layout
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}
