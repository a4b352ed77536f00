package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("JINA_API_KEY", "jina-key")
	t.Setenv("QDRANT_URL", "https://cluster.example.cloud:6333")
	t.Setenv("QDRANT_API_KEY", "qdrant-key")
	t.Setenv("REDIS_HOST", "redis.example.com")
	t.Setenv("REDIS_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ProviderGemini, cfg.GenerationProvider)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, "jina-embeddings-v3", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.EmbeddingDim)
	assert.Equal(t, "news_articles", cfg.QdrantCollection)
	assert.Equal(t, 16596, cfg.RedisPort)
	assert.Equal(t, "default", cfg.RedisUsername)
	assert.Equal(t, 10, cfg.NewsTopK)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "redis.example.com:16596", cfg.RedisAddr())
}

func TestLoadRefusesMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("REDIS_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "REDIS_PASSWORD")
}

func TestValidateSelectsCredentialsByBackend(t *testing.T) {
	cfg := &Config{
		GenerationProvider: ProviderOpenAI,
		OpenAIAPIKey:       "sk",
		JinaAPIKey:         "jina",
		VectorIndex:        IndexRedis,
		SessionStore:       StoreMemory,
		RedisHost:          "localhost",
		RedisPort:          6379,
		RedisPassword:      "pw",
		EmbeddingDim:       768,
		NewsTopK:           10,
		IngestBatchSize:    10,
	}
	require.NoError(t, cfg.Validate())

	cfg.VectorIndex = "pinecone"
	assert.ErrorContains(t, cfg.Validate(), "unsupported VECTOR_INDEX")

	cfg.VectorIndex = IndexQdrant
	assert.ErrorContains(t, cfg.Validate(), "QDRANT_URL")
}

func TestQdrantEndpoint(t *testing.T) {
	cfg := &Config{QdrantURL: "https://abc.eu-central.aws.cloud.qdrant.io:6333", QdrantGRPCPort: 6334}
	host, port, tls, err := cfg.QdrantEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "abc.eu-central.aws.cloud.qdrant.io", host)
	assert.Equal(t, 6334, port)
	assert.True(t, tls)

	cfg.QdrantURL = "localhost"
	host, port, tls, err = cfg.QdrantEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
	assert.False(t, tls)
}
