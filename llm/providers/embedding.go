package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
)

// Jina embedding tasks. Passages and queries are encoded asymmetrically.
const (
	TaskPassage = "retrieval.passage"
	TaskQuery   = "retrieval.query"
)

// EmbeddingConfig defines the configuration for creating an embedding model.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// Task is added to every request body as the Jina "task" field.
	Task    string
	Timeout time.Duration
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model. When Task is
// set, requests go through a transport that injects it into the JSON body.
func NewEmbeddingModel(ctx context.Context, config *EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "jina-embeddings-v3"
	}

	cfg := &openaiEmbed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
		Timeout: config.Timeout,
	}
	if config.Dimensions > 0 {
		dims := config.Dimensions
		cfg.Dimensions = &dims
	}
	if config.Task != "" {
		cfg.HTTPClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: NewTaskTransport(config.Task, nil),
		}
	}

	return openaiEmbed.NewEmbedder(ctx, cfg)
}

// TaskTransport adds a "task" field to JSON request bodies.
type TaskTransport struct {
	task string
	base http.RoundTripper
}

// NewTaskTransport wraps base (http.DefaultTransport when nil).
func NewTaskTransport(task string, base http.RoundTripper) *TaskTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &TaskTransport{task: task, base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *TaskTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Method != http.MethodPost {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		payload["task"] = t.task
		if patched, err := json.Marshal(payload); err == nil {
			body = patched
		}
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(out)
}
