// Package app wires the services from configuration.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"newsrag/config"
	"newsrag/llm/chat"
	"newsrag/llm/generation"
	"newsrag/llm/providers"
	"newsrag/llm/retrieval"
	"newsrag/llm/session"
	"newsrag/llm/vector"
)

var setupTracing = providers.SetupTracing

// Indexing holds what document ingestion and search need.
type Indexing struct {
	Index     vector.Index
	Retrieval *retrieval.Service

	closers []func(context.Context) error
}

// Container holds every wired dependency of the chat server.
type Container struct {
	*Indexing

	Sessions     session.Store
	Generator    *generation.Gateway
	Orchestrator *chat.Orchestrator
}

// NewIndexing builds the embedders, the vector index and the retrieval
// service. The index collection is created when missing.
func NewIndexing(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Indexing, err error) {
	ix := &Indexing{}
	defer func() {
		if err != nil {
			_ = ix.Close(ctx)
		}
	}()

	flush, err := setupTracing(cfg.CozeloopAPIToken, cfg.CozeloopWorkspaceID)
	if err != nil {
		return nil, err
	}
	ix.closers = append(ix.closers, func(ctx context.Context) error {
		flush(ctx)
		return nil
	})

	// 1. Embedders, one per Jina task
	embCfg := providers.EmbeddingConfig{
		APIKey:     cfg.JinaAPIKey,
		BaseURL:    cfg.JinaBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDim,
		Timeout:    cfg.EmbeddingTimeout,
	}
	passageCfg, queryCfg := embCfg, embCfg
	passageCfg.Task = providers.TaskPassage
	queryCfg.Task = providers.TaskQuery

	passage, err := providers.NewEmbeddingModel(ctx, &passageCfg)
	if err != nil {
		return nil, err
	}
	query, err := providers.NewEmbeddingModel(ctx, &queryCfg)
	if err != nil {
		return nil, err
	}
	embeddings := vector.NewEmbeddingService(passage, query, cfg.EmbeddingDim)

	// 2. Vector index
	index, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	ix.Index = index
	ix.closers = append(ix.closers, func(context.Context) error { return index.Close() })

	if err = index.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	// 3. Retrieval
	ix.Retrieval = retrieval.NewService(embeddings, index, log, retrieval.WithBatchSize(cfg.IngestBatchSize))

	log.Info().Str("vector_index", cfg.VectorIndex).Msg("indexing ready")
	return ix, nil
}

func newIndex(cfg *config.Config) (vector.Index, error) {
	switch cfg.VectorIndex {
	case config.IndexQdrant:
		host, port, useTLS, err := cfg.QdrantEndpoint()
		if err != nil {
			return nil, err
		}
		return vector.NewQdrantStore(vector.QdrantConfig{
			Host:   host,
			Port:   port,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: useTLS,
			StoreConfig: vector.StoreConfig{
				EmbeddingDim: cfg.EmbeddingDim,
				IndexName:    cfg.QdrantCollection,
			},
		})
	case config.IndexRedis:
		return vector.NewRedisStore(vector.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			StoreConfig: vector.StoreConfig{
				EmbeddingDim: cfg.EmbeddingDim,
				IndexName:    cfg.RedisVectorIndex,
				KeyPrefix:    cfg.RedisVectorPrefix,
			},
		}), nil
	default:
		return vector.NewMemoryStore(cfg.EmbeddingDim), nil
	}
}

// Close releases connections in reverse order of creation.
func (ix *Indexing) Close(ctx context.Context) error {
	var errs []error
	for i := len(ix.closers) - 1; i >= 0; i-- {
		if err := ix.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	ix.closers = nil
	return errors.Join(errs...)
}

// New builds the full chat stack on top of NewIndexing.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	ix, err := NewIndexing(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c := &Container{Indexing: ix}

	// 4. Chat model
	chatModel, err := providers.NewChatModel(ctx, cfg.GenerationProvider, chatModelConfig(cfg))
	if err != nil {
		_ = ix.Close(ctx)
		return nil, err
	}
	c.Generator = generation.NewGateway(chatModel, log)

	// 5. Sessions
	switch cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			_ = ix.Close(ctx)
			return nil, err
		}
		ix.closers = append(ix.closers, func(context.Context) error { return client.Close() })
		c.Sessions = session.NewRedisStore(client, cfg.SessionKeyPrefix, log)
	default:
		c.Sessions = session.NewMemoryStore()
	}

	// 6. Orchestrator
	opts := []chat.Option{chat.WithNewsTopK(cfg.NewsTopK)}
	if cfg.SessionLocking {
		opts = append(opts, chat.WithLocker(chat.NewKeyedMutex()))
	}
	c.Orchestrator = chat.New(c.Retrieval, c.Generator, c.Sessions, log, opts...)

	log.Info().
		Str("provider", cfg.GenerationProvider).
		Str("session_store", cfg.SessionStore).
		Msg("chat services ready")
	return c, nil
}

func chatModelConfig(cfg *config.Config) *providers.ChatModelConfig {
	if cfg.GenerationProvider == config.ProviderOpenAI {
		return &providers.ChatModelConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}
	}
	return &providers.ChatModelConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}
}
