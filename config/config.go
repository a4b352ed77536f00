// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	IndexQdrant = "qdrant"
	IndexRedis  = "redis"
	IndexMemory = "memory"

	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds the configuration for the news chat backend.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	Port        int         `envconfig:"PORT" default:"3000"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins []string    `envconfig:"CORS_ORIGINS" default:"*"`

	// Generation
	GenerationProvider string `envconfig:"GENERATION_PROVIDER" default:"gemini"`
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	GeminiModel        string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel        string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Embeddings
	JinaAPIKey       string        `envconfig:"JINA_API_KEY"`
	JinaBaseURL      string        `envconfig:"JINA_BASE_URL" default:"https://api.jina.ai/v1"`
	EmbeddingModel   string        `envconfig:"EMBEDDING_MODEL" default:"jina-embeddings-v3"`
	EmbeddingDim     int           `envconfig:"EMBEDDING_DIM" default:"768"`
	EmbeddingTimeout time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`

	// Vector index
	VectorIndex       string `envconfig:"VECTOR_INDEX" default:"qdrant"`
	QdrantURL         string `envconfig:"QDRANT_URL"`
	QdrantAPIKey      string `envconfig:"QDRANT_API_KEY"`
	QdrantGRPCPort    int    `envconfig:"QDRANT_GRPC_PORT" default:"6334"`
	QdrantCollection  string `envconfig:"QDRANT_COLLECTION" default:"news_articles"`
	RedisVectorIndex  string `envconfig:"REDIS_VECTOR_INDEX" default:"news_articles"`
	RedisVectorPrefix string `envconfig:"REDIS_VECTOR_PREFIX" default:"news:"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"16596"`
	RedisUsername string `envconfig:"REDIS_USERNAME" default:"default"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Sessions
	SessionStore     string `envconfig:"SESSION_STORE" default:"redis"`
	SessionKeyPrefix string `envconfig:"SESSION_KEY_PREFIX" default:""`
	SessionLocking   bool   `envconfig:"SESSION_LOCKING" default:"false"`

	// Retrieval
	NewsTopK        int `envconfig:"NEWS_TOP_K" default:"10"`
	IngestBatchSize int `envconfig:"INGEST_BATCH_SIZE" default:"10"`

	// Optional eino tracing
	CozeloopWorkspaceID string `envconfig:"COZELOOP_WORKSPACE_ID"`
	CozeloopAPIToken    string `envconfig:"COZELOOP_API_TOKEN"`
}

// Load reads an optional .env file, binds the environment and validates the
// result.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum values and that every credential the selected
// backends need is present.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch c.GenerationProvider {
	case ProviderGemini:
		require("GEMINI_API_KEY", c.GeminiAPIKey)
	case ProviderOpenAI:
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	default:
		return fmt.Errorf("unsupported GENERATION_PROVIDER: %s", c.GenerationProvider)
	}

	require("JINA_API_KEY", c.JinaAPIKey)

	needRedis := false
	switch c.VectorIndex {
	case IndexQdrant:
		require("QDRANT_URL", c.QdrantURL)
		require("QDRANT_API_KEY", c.QdrantAPIKey)
	case IndexRedis:
		needRedis = true
	case IndexMemory:
	default:
		return fmt.Errorf("unsupported VECTOR_INDEX: %s", c.VectorIndex)
	}

	switch c.SessionStore {
	case StoreRedis:
		needRedis = true
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported SESSION_STORE: %s", c.SessionStore)
	}

	if needRedis {
		require("REDIS_HOST", c.RedisHost)
		require("REDIS_PASSWORD", c.RedisPassword)
		if c.RedisPort <= 0 {
			missing = append(missing, "REDIS_PORT")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.NewsTopK <= 0 || c.IngestBatchSize <= 0 {
		return fmt.Errorf("NEWS_TOP_K and INGEST_BATCH_SIZE must be positive")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// RedisAddr returns host:port for the Redis clients.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + strconv.Itoa(c.RedisPort)
}

// QdrantEndpoint splits QDRANT_URL into the gRPC host, port and TLS flag.
// A bare host is accepted; the REST port in a URL is replaced by the gRPC port.
func (c *Config) QdrantEndpoint() (host string, port int, useTLS bool, err error) {
	raw := c.QdrantURL
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), c.QdrantGRPCPort, false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL: missing host")
	}
	return u.Hostname(), c.QdrantGRPCPort, u.Scheme == "https", nil
}

// LogSummary writes the effective configuration without secrets.
func (c *Config) LogSummary(log zerolog.Logger) {
	log.Info().
		Str("environment", string(c.Environment)).
		Int("port", c.Port).
		Str("generation_provider", c.GenerationProvider).
		Str("embedding_model", c.EmbeddingModel).
		Int("embedding_dim", c.EmbeddingDim).
		Str("vector_index", c.VectorIndex).
		Str("session_store", c.SessionStore).
		Bool("session_locking", c.SessionLocking).
		Int("news_top_k", c.NewsTopK).
		Msg("configuration loaded")
}
