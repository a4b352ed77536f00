package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"newsrag/llm"
)

// RedisStore 基于 Redis 的会话存储：一个会话一个 key，值为 JSON 序列化的对话，无过期时间
type RedisStore struct {
	client redis.Cmdable
	prefix string
	log    zerolog.Logger
}

// NewRedisStore 创建 Redis 会话存储；go-redis 在第一次命令时才建立连接
func NewRedisStore(client redis.Cmdable, keyPrefix string, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix,
		log:    log.With().Str("component", "session").Logger(),
	}
}

// Load 读取会话，key 不存在时返回空对话
func (s *RedisStore) Load(ctx context.Context, sessionID string) (llm.Conversation, error) {
	const op = "session.Load"

	data, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		s.log.Debug().Str("session_id", sessionID).Msg("session not found")
		return llm.Conversation{}, nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session")
		return nil, llm.E(llm.KindSessionStore, op, err)
	}

	var conv llm.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("corrupt session value")
		return nil, llm.E(llm.KindSessionStore, op, err)
	}
	if err := conv.Validate(); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("corrupt session turns")
		return nil, llm.E(llm.KindSessionStore, op, err)
	}
	if conv == nil {
		conv = llm.Conversation{}
	}
	return conv, nil
}

// Save 覆盖写入整个对话
func (s *RedisStore) Save(ctx context.Context, sessionID string, conv llm.Conversation) error {
	const op = "session.Save"

	if conv == nil {
		conv = llm.Conversation{}
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return llm.E(llm.KindSessionStore, op, err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), data, 0).Err(); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to save session")
		return llm.E(llm.KindSessionStore, op, err)
	}

	s.log.Debug().Str("session_id", sessionID).Int("turns", len(conv)).Msg("session saved")
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}
