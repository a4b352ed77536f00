package pubsub

import "context"

const (
	// StartedEvent 用户提交了一个问题，请求已发出
	StartedEvent EventType = "started"
	// ChunkEvent 收到一段流式回复
	ChunkEvent EventType = "chunk"
	// CompletedEvent 回复结束，载荷中带有完整文本
	CompletedEvent EventType = "completed"
	// FailedEvent 请求或流在中途失败
	FailedEvent EventType = "failed"
)

// Subscriber 订阅者接口，定义了获取事件通道的方法
type Subscriber[T any] interface {
	// Subscribe 返回一个只读的事件通道，并在 context 结束时自动关闭
	Subscribe(context.Context) <-chan Event[T]
}

type (
	// EventType 标识事件的类型
	EventType string

	// Event 是一次对话请求生命周期中的一个事件
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher 发布者接口
	Publisher[T any] interface {
		// Publish 将事件发给所有订阅者，返回实际送达的数量
		Publish(EventType, T) int
	}
)
