package providers

import (
	"context"
	"fmt"

	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewGeminiChatModel creates a Google Gemini chat model backed by the genai SDK.
func NewGeminiChatModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  modelName,
	})
}

// NewOpenAIChatModel creates an OpenAI-compatible chat model from specific configuration.
func NewOpenAIChatModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   modelName,
	})
}

// NewChatModel picks the chat model implementation by provider name.
func NewChatModel(ctx context.Context, provider string, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	switch provider {
	case "gemini":
		return NewGeminiChatModel(ctx, config)
	case "openai":
		return NewOpenAIChatModel(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", provider)
	}
}
