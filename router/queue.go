package router

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentnet/types"
)

// queuedMessage is one message awaiting delivery: the envelope, its
// completion channel, the enqueue timestamp, and the retry count bounded by
// the configured MaxRetries.
type queuedMessage struct {
	msg        *types.Message
	result     chan *types.Response
	enqueuedAt time.Time
	retries    int
}

func (q *queuedMessage) resolve(resp *types.Response) {
	select {
	case q.result <- resp:
	default:
	}
}

// Delivery is the pending-completion handle returned for a routed message.
// It resolves when the background processor services the entry or exhausts
// its retries. Synchronous routing paths return an already-resolved handle.
type Delivery struct {
	MessageID string
	result    chan *types.Response
}

// Done exposes the completion channel. It receives exactly one response.
func (d *Delivery) Done() <-chan *types.Response {
	return d.result
}

// Wait blocks until the delivery resolves or the context is canceled.
func (d *Delivery) Wait(ctx context.Context) (*types.Response, error) {
	select {
	case resp := <-d.result:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolvedDelivery wraps an already-known response in a Delivery.
func resolvedDelivery(messageID string, resp *types.Response) *Delivery {
	d := &Delivery{
		MessageID: messageID,
		result:    make(chan *types.Response, 1),
	}
	d.result <- resp
	return d
}

// priorityQueues holds the four strict-precedence FIFO lanes. pop always
// drains the most urgent non-empty lane first.
type priorityQueues struct {
	mu    sync.Mutex
	lanes map[types.Priority][]*queuedMessage
}

func newPriorityQueues() *priorityQueues {
	lanes := make(map[types.Priority][]*queuedMessage, len(types.Priorities))
	for _, p := range types.Priorities {
		lanes[p] = nil
	}
	return &priorityQueues{lanes: lanes}
}

// push appends the entry to the tail of its priority lane. Retried entries
// go back through push, so a retry rejoins the tail of its original lane.
func (q *priorityQueues) push(e *queuedMessage) {
	priority := e.msg.Priority
	if !priority.Valid() {
		priority = types.PriorityNormal
	}
	q.mu.Lock()
	q.lanes[priority] = append(q.lanes[priority], e)
	q.mu.Unlock()
}

// pop removes and returns the head of the first non-empty lane in priority
// order, or nil when every lane is empty.
func (q *priorityQueues) pop() *queuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range types.Priorities {
		if lane := q.lanes[p]; len(lane) > 0 {
			e := lane[0]
			q.lanes[p] = lane[1:]
			return e
		}
	}
	return nil
}

// depths returns the current depth of every lane.
func (q *priorityQueues) depths() map[types.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[types.Priority]int, len(q.lanes))
	for p, lane := range q.lanes {
		out[p] = len(lane)
	}
	return out
}
