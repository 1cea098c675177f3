package router

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/agentnet/types"
)

// BroadcastResult is the per-recipient outcome of a broadcast fan-out.
type BroadcastResult struct {
	AgentID  string          `json:"agent_id"`
	Response *types.Response `json:"response,omitempty"`
	Err      string          `json:"error,omitempty"`
}

// BroadcastMessage fans the message out to every online agent except the
// sender. Each recipient gets its own clone with a derived ID, delivered in
// parallel under a bounded semaphore. Semantics are all-settled: one
// recipient's failure is captured in its own result and never aborts the
// others.
func (r *Router) BroadcastMessage(ctx context.Context, msg *types.Message) []BroadcastResult {
	recipients := make([]*types.AgentProfile, 0)
	for _, p := range r.directory.Discover() {
		if p.Online() && p.ID != msg.From {
			recipients = append(recipients, p)
		}
	}

	parallelism := r.config.BroadcastParallelism
	if parallelism <= 0 {
		parallelism = 8
	}
	sem := semaphore.NewWeighted(parallelism)

	results := make([]BroadcastResult, len(recipients))
	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, agentID string) {
			defer wg.Done()
			results[i].AgentID = agentID

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].Err = err.Error()
				return
			}
			defer sem.Release(1)

			delivery := r.enqueue(msg.CloneFor(agentID))
			resp, err := delivery.Wait(ctx)
			if err != nil {
				results[i].Err = err.Error()
				return
			}
			results[i].Response = resp
			if !resp.Success && resp.Error != nil {
				results[i].Err = resp.Error.Error()
			}
		}(i, recipient.ID)
	}
	wg.Wait()

	if r.collector != nil {
		r.collector.BroadcastSent()
	}
	r.logger.Debug("broadcast completed",
		zap.String("message", msg.ID),
		zap.Int("recipients", len(recipients)))
	return results
}
