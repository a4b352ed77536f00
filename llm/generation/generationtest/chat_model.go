// Package generationtest provides a scripted eino chat model for tests.
package generationtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is a model.BaseChatModel that replays scripted output.
type ChatModel struct {
	// Replies are returned by successive Generate calls; the last one repeats.
	Replies     []string
	GenerateErr error

	// Chunks are streamed in order, followed by StreamErr if set.
	Chunks    []string
	StreamErr error
	StartErr  error
	// HoldOpen keeps the stream open after the chunks until ctx is done.
	HoldOpen bool

	mu        sync.Mutex
	generated [][]*schema.Message
	streamed  [][]*schema.Message
}

var _ model.BaseChatModel = (*ChatModel)(nil)

// Generate implements model.BaseChatModel.
func (m *ChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	n := len(m.generated)
	m.generated = append(m.generated, input)
	m.mu.Unlock()

	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	if len(m.Replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	reply := m.Replies[min(n, len(m.Replies)-1)]
	return schema.AssistantMessage(reply, nil), nil
}

// Stream implements model.BaseChatModel.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	m.streamed = append(m.streamed, input)
	m.mu.Unlock()

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(m.Chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range m.Chunks {
			if ctx.Err() != nil {
				sw.Send(nil, ctx.Err())
				return
			}
			if closed := sw.Send(schema.AssistantMessage(c, nil), nil); closed {
				return
			}
		}
		if m.StreamErr != nil {
			sw.Send(nil, m.StreamErr)
			return
		}
		if m.HoldOpen {
			<-ctx.Done()
			sw.Send(nil, ctx.Err())
		}
	}()
	return sr, nil
}

// GenerateCalls returns the message lists passed to Generate.
func (m *ChatModel) GenerateCalls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.generated...)
}

// StreamCalls returns the message lists passed to Stream.
func (m *ChatModel) StreamCalls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.streamed...)
}
