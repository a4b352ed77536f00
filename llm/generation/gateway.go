// Package generation wraps an eino chat model behind the two call shapes the
// chat pipeline needs: a full response and a stream of text fragments.
package generation

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"newsrag/llm"
)

// Gateway sends ordered multi-turn conversations to a chat model.
type Gateway struct {
	model model.BaseChatModel
	log   zerolog.Logger
}

// NewGateway creates a gateway over any eino chat model.
func NewGateway(m model.BaseChatModel, log zerolog.Logger) *Gateway {
	return &Gateway{
		model: m,
		log:   log.With().Str("component", "generation").Logger(),
	}
}

// Generate returns the complete response text.
func (g *Gateway) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	const op = "generation.Generate"

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		g.log.Error().Err(err).Int("messages", len(messages)).Msg("generate failed")
		return "", llm.E(llm.KindGeneration, op, err)
	}
	if resp == nil {
		return "", llm.Errorf(llm.KindGeneration, op, "model returned no message")
	}
	return resp.Content, nil
}

// Stream returns the response as text fragments in provider order. Empty
// fragments are skipped. The caller must Close the reader.
func (g *Gateway) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error) {
	const op = "generation.Stream"

	sr, err := g.model.Stream(ctx, messages)
	if err != nil {
		g.log.Error().Err(err).Int("messages", len(messages)).Msg("stream failed to start")
		return nil, llm.E(llm.KindGeneration, op, err)
	}

	return schema.StreamReaderWithConvert(sr, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}

// Messages converts stored turns into chat model messages.
func Messages(conv llm.Conversation) []*schema.Message {
	out := make([]*schema.Message, 0, len(conv))
	for _, t := range conv {
		switch t.Role {
		case llm.RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Text, nil))
		default:
			out = append(out, schema.UserMessage(t.Text))
		}
	}
	return out
}
