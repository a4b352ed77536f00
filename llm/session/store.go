package session

import (
	"context"
	"sync"

	"newsrag/llm"
)

// Store 会话存储接口，每个会话一条完整的对话记录
type Store interface {
	// Load 读取会话；不存在的会话返回空对话，不是错误
	Load(ctx context.Context, sessionID string) (llm.Conversation, error)
	// Save 整体覆盖写入会话
	Save(ctx context.Context, sessionID string, conv llm.Conversation) error
}

// MemoryStore 内存实现的会话存储，用于本地开发和测试
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]llm.Conversation
}

// NewMemoryStore 创建一个新的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]llm.Conversation)}
}

// Load 返回会话的副本
func (s *MemoryStore) Load(_ context.Context, sessionID string) (llm.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.sessions[sessionID]
	out := make(llm.Conversation, len(conv))
	copy(out, conv)
	return out, nil
}

// Save 保存副本，调用方之后的修改不会影响存储内容
func (s *MemoryStore) Save(_ context.Context, sessionID string, conv llm.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(llm.Conversation, len(conv))
	copy(stored, conv)
	s.sessions[sessionID] = stored
	return nil
}
