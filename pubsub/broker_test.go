package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 一次回复的事件按发布顺序到达
func TestBrokerDeliversInOrder(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	assert.Equal(t, 1, broker.Publish(StartedEvent, "q"))
	broker.Publish(ChunkEvent, "Hel")
	broker.Publish(ChunkEvent, "lo")
	broker.Publish(CompletedEvent, "Hello")

	var got []Event[string]
	for len(got) < 4 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []Event[string]{
		{Type: StartedEvent, Payload: "q"},
		{Type: ChunkEvent, Payload: "Hel"},
		{Type: ChunkEvent, Payload: "lo"},
		{Type: CompletedEvent, Payload: "Hello"},
	}, got)
}

// ctx 取消后订阅被自动清理
func TestAutoUnsubscribe(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	events := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()

	assert.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-events
	assert.False(t, ok)
}

// 慢订阅者不会阻塞发布方，多出的事件被计入丢弃数
func TestNonBlockingPublish(t *testing.T) {
	broker := NewBrokerWithBuffer[int](4)
	defer broker.Shutdown()

	_ = broker.Subscribe(context.Background())
	for i := 0; i < 10; i++ {
		broker.Publish(ChunkEvent, i)
	}
	assert.Equal(t, int64(6), broker.Dropped())
}

func TestBrokerShutdown(t *testing.T) {
	broker := NewBroker[string]()
	events := broker.Subscribe(context.Background())

	broker.Shutdown()
	broker.Shutdown()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after shutdown")
	}

	late := broker.Subscribe(context.Background())
	_, ok := <-late
	assert.False(t, ok)
	assert.Equal(t, 0, broker.Publish(ChunkEvent, "ignored"))
}
