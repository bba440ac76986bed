package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testMessage struct {
	BaseMessage
	Payload int
}

func TestProcessMessagesFIFO(t *testing.T) {
	bus := New(nil)

	var order []int
	var mu sync.Mutex
	bus.SubscribeAll(func(m Message) bool {
		mu.Lock()
		order = append(order, m.(testMessage).Payload)
		mu.Unlock()
		return true
	})

	bus.Publish(testMessage{Payload: 1})
	bus.Publish(testMessage{Payload: 2})
	bus.Publish(testMessage{Payload: 3})

	bus.ProcessMessages()

	require.Equal(t, []int{1, 2, 3}, order)
}

func TestReentrantPublishDeferredToNextDrain(t *testing.T) {
	bus := New(nil)

	var seen []int
	bus.Subscribe(1, func(m Message) bool {
		seen = append(seen, m.(testMessage).Payload)
		if m.(testMessage).Payload == 1 {
			bus.Publish(testMessage{BaseMessage: BaseMessage{Type: 1}, Payload: 2})
		}
		return true
	})

	bus.Publish(testMessage{BaseMessage: BaseMessage{Type: 1}, Payload: 1})
	bus.ProcessMessages()
	require.Equal(t, []int{1}, seen)

	bus.ProcessMessages()
	require.Equal(t, []int{1, 2}, seen)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New(nil)
	count := 0
	id := bus.Subscribe(1, func(m Message) bool {
		count++
		return true
	})
	bus.Unsubscribe(id)
	bus.Publish(testMessage{BaseMessage: BaseMessage{Type: 1}})
	bus.ProcessMessages()
	require.Equal(t, 0, count)
}

func TestHandlerPanicDoesNotBlockOtherSubscribers(t *testing.T) {
	bus := New(nil)
	ran := false
	bus.Subscribe(1, func(m Message) bool { panic("boom") })
	bus.Subscribe(1, func(m Message) bool { ran = true; return true })
	bus.Publish(testMessage{BaseMessage: BaseMessage{Type: 1}})
	bus.ProcessMessages()
	require.True(t, ran)
}

func TestPublishImmediateSynchronous(t *testing.T) {
	bus := New(nil)
	got := false
	bus.SubscribeAll(func(m Message) bool { got = true; return true })
	bus.PublishImmediate(testMessage{Payload: 9})
	require.True(t, got)
	require.Equal(t, 0, bus.QueueLen())
}
