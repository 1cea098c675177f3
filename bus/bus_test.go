package bus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestAsyncBus_PublishSubscribe(t *testing.T) {
	b := New(nil)
	defer b.Stop()

	var got atomic.Int64
	b.Subscribe(EventAgentRegistered, func(e Event) {
		assert.Equal(t, EventAgentRegistered, e.Type())
		got.Add(1)
	})

	b.Publish(&AgentRegistered{AgentID: "agent-a", At: time.Now()})
	b.Publish(&AgentRegistered{AgentID: "agent-b", At: time.Now()})

	waitFor(t, func() bool { return got.Load() == 2 })
}

func TestAsyncBus_TypeIsolation(t *testing.T) {
	b := New(nil)
	defer b.Stop()

	var wrong atomic.Int64
	b.Subscribe(EventWorkflowFailed, func(Event) { wrong.Add(1) })

	var right atomic.Int64
	b.Subscribe(EventWorkflowCompleted, func(Event) { right.Add(1) })

	b.Publish(&WorkflowCompleted{SessionID: "s-1", At: time.Now()})

	waitFor(t, func() bool { return right.Load() == 1 })
	assert.Equal(t, int64(0), wrong.Load())
}

func TestAsyncBus_Unsubscribe(t *testing.T) {
	b := New(nil)
	defer b.Stop()

	var calls atomic.Int64
	id := b.Subscribe(EventMessageSent, func(Event) { calls.Add(1) })

	b.Publish(&MessageSent{MessageID: "m-1", At: time.Now()})
	waitFor(t, func() bool { return calls.Load() == 1 })

	b.Unsubscribe(id)
	b.Publish(&MessageSent{MessageID: "m-2", At: time.Now()})

	// The second publish must not reach the removed handler.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestAsyncBus_PanickingHandlerDoesNotKillDispatch(t *testing.T) {
	b := New(nil)
	defer b.Stop()

	b.Subscribe(EventMessageFailed, func(Event) { panic("boom") })

	var survived atomic.Int64
	b.Subscribe(EventMessageFailed, func(Event) { survived.Add(1) })

	b.Publish(&MessageFailed{MessageID: "m-1", At: time.Now()})
	b.Publish(&MessageFailed{MessageID: "m-2", At: time.Now()})

	waitFor(t, func() bool { return survived.Load() == 2 })
}

func TestAsyncBus_StopIsIdempotent(t *testing.T) {
	b := New(nil)
	b.Stop()
	require.NotPanics(t, func() { b.Stop() })

	// Publishing after stop must not block.
	done := make(chan struct{})
	go func() {
		b.Publish(&TopologyChanged{Agents: 1, At: time.Now()})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish after stop blocked")
	}
}

func TestSubscriptionIDsAreUnique(t *testing.T) {
	b := New(nil)
	defer b.Stop()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := b.Subscribe(EventAgentStatusChanged, func(Event) {})
		_, dup := seen[id]
		require.False(t, dup, "duplicate subscription id %s", id)
		seen[id] = struct{}{}
	}
}
