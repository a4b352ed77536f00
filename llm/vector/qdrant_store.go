package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds Qdrant connection configuration
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
	StoreConfig
}

// QdrantStore implements Index on a Qdrant collection with cosine distance
type QdrantStore struct {
	client *qdrant.Client
	config StoreConfig
}

// NewQdrantStore connects to Qdrant over gRPC.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", cfg.EmbeddingDim)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, config: cfg.StoreConfig}, nil
}

// EnsureCollection creates the collection if it doesn't exist
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.IndexName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.IndexName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.EmbeddingDim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes points and waits for the operation to be applied
func (s *QdrantStore) Upsert(ctx context.Context, points ...Point) error {
	if len(points) == 0 {
		return nil
	}

	structs, err := s.pointStructs(points)
	if err != nil {
		return err
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.IndexName,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search performs nearest-neighbour search with payloads
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	n := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.IndexName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		payload := make(map[string]any, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			payload[k] = fromQdrantValue(v)
		}
		hits = append(hits, Hit{
			ID:      p.GetId().GetNum(),
			Score:   p.GetScore(),
			Payload: payload,
		})
	}
	return hits, nil
}

// Close closes the gRPC connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// fromQdrantValue converts a payload value back into plain Go values, the
// same shapes encoding/json produces.
func fromQdrantValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_IntegerValue:
		return float64(k.IntegerValue)
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		fields := k.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for name, field := range fields {
			out[name] = fromQdrantValue(field)
		}
		return out
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, fromQdrantValue(item))
		}
		return out
	default:
		return nil
	}
}

// pointStructs converts points for the wire. Payload values the client
// cannot encode (invalid UTF-8, unsupported types) are returned as errors.
func (s *QdrantStore) pointStructs(points []Point) ([]*qdrant.PointStruct, error) {
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != s.config.EmbeddingDim {
			return nil, fmt.Errorf("point %d has dimension %d, want %d", p.ID, len(p.Vector), s.config.EmbeddingDim)
		}
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}
	return structs, nil
}
