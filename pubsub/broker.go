package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// Broker 是基于内存的发布/订阅实现，泛型 T 为事件载荷。
// 流式回复的每个分片都是一个事件，所以订阅通道带缓冲。
type Broker[T any] struct {
	mu         sync.RWMutex
	subs       map[chan Event[T]]struct{}
	done       chan struct{}
	closeOnce  sync.Once
	bufferSize int
	dropped    atomic.Int64 // 因订阅者缓冲区已满而丢弃的事件数
}

// NewBroker 创建一个使用默认缓冲区大小的 Broker。
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer 创建一个每个订阅通道缓冲 size 个事件的 Broker。
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// Shutdown 关闭 Broker 并关闭所有订阅通道，可重复调用。
func (b *Broker[T]) Shutdown() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		close(b.done)
		for ch := range b.subs {
			delete(b.subs, ch)
			close(ch)
		}
	})
}

// Subscribe 注册一个订阅者。ctx 结束或 Broker 关闭时通道被关闭。
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 已关闭时返回一个立即关闭的通道
	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// SubscriberCount 返回当前活跃的订阅者数量。
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped 返回累计丢弃的事件数。
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Publish 非阻塞地把事件发给所有订阅者，缓冲区已满的订阅者会错过该事件。
// 返回送达的订阅者数量。
func (b *Broker[T]) Publish(t EventType, payload T) int {
	// 持有读锁发送，避免与取消订阅时的 close 竞争
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return 0
	default:
	}

	event := Event[T]{Type: t, Payload: payload}
	delivered := 0
	for sub := range b.subs {
		select {
		case sub <- event:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}
