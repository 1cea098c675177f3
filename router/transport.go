package router

import (
	"context"
	"sync"

	"github.com/BaSui01/agentnet/types"
)

// Transport delivers a message to its target agent. Real transports (HTTP,
// WebSocket, etc.) live outside the core; the router only requires this
// in-process contract.
type Transport interface {
	Deliver(ctx context.Context, msg *types.Message) (*types.Response, error)
}

// Loopback is the default in-process transport. Agents attach handler
// functions per agent ID; messages to agents without a handler are
// acknowledged without further processing, which stands in for real
// delivery in tests and single-process deployments.
type Loopback struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// HandlerFunc processes a delivered message on behalf of an agent.
type HandlerFunc func(ctx context.Context, msg *types.Message) (*types.Response, error)

// NewLoopback creates an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[string]HandlerFunc)}
}

// Handle attaches a handler for the given agent ID, replacing any previous
// handler.
func (l *Loopback) Handle(agentID string, fn HandlerFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[agentID] = fn
}

// Remove detaches the handler for the given agent ID.
func (l *Loopback) Remove(agentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, agentID)
}

// Deliver invokes the target agent's handler, or acknowledges the message
// when no handler is attached.
func (l *Loopback) Deliver(ctx context.Context, msg *types.Message) (*types.Response, error) {
	l.mu.RLock()
	fn, ok := l.handlers[msg.To]
	l.mu.RUnlock()
	if !ok {
		return types.OK(map[string]string{"delivered": msg.ID}).WithAgent(msg.To), nil
	}
	return fn(ctx, msg)
}
