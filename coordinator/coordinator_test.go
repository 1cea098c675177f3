package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentnet/router"
	"github.com/BaSui01/agentnet/types"
)

// staticSource serves a fixed agent list.
type staticSource struct {
	profiles []*types.AgentProfile
}

func (s *staticSource) Discover() []*types.AgentProfile { return s.profiles }

// recordingRelay captures relayed handoff messages.
type recordingRelay struct {
	mu       sync.Mutex
	messages []*types.Message
}

func (r *recordingRelay) RouteMessage(_ context.Context, msg *types.Message) (*router.Delivery, error) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	return &router.Delivery{MessageID: msg.ID}, nil
}

func (r *recordingRelay) relayed() []*types.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func onlineAgent(id string, caps ...types.AgentCapability) *types.AgentProfile {
	return &types.AgentProfile{
		ID:           id,
		Type:         "worker",
		Status:       types.StatusOnline,
		Capabilities: caps,
	}
}

func workflowMessage(t *testing.T, payload *types.WorkflowPayload) *types.Message {
	t.Helper()
	msg, err := types.NewMessage("user", SupervisorAgent, types.MessageWorkflowStart, payload)
	require.NoError(t, err)
	return msg
}

// capabilityScorer scores 1 for an exact capability name and 0 otherwise,
// making supervisor decisions in tests fully deterministic.
type capabilityScorer struct{ want string }

func (s *capabilityScorer) Score(_ context.Context, _, capability string) float64 {
	if capability == s.want {
		return 1
	}
	return 0
}

func TestCoordinator_RunCompletesWithTerminalResponse(t *testing.T) {
	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("ethics-analyst",
			types.AgentCapability{ID: "e1", Name: "ethical-analysis", Category: "ethics", Reliability: 0.9}),
		onlineAgent("technical-support",
			types.AgentCapability{ID: "t1", Name: "technical-support", Category: "technical", Reliability: 0.85}),
	}}
	c := New(DefaultConfig(), source, nil, nil, nil)
	c.RegisterNode(NewFuncNode("ethics-analyst", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Response: "consent must be obtained before deployment"}, nil
	}))

	msg := workflowMessage(t, &types.WorkflowPayload{
		Content:   "Is it ethical to deploy a model without user consent?",
		SessionID: "s-ethics",
	})

	result, err := c.Run(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "s-ethics", result.SessionID)
	assert.Equal(t, "consent must be obtained before deployment", result.Response)

	require.NotNil(t, result.Decision)
	assert.Equal(t, "ethics-analyst", result.Decision.SelectedAgent)
	assert.Greater(t, result.Decision.Confidence, 0.5)

	assert.Equal(t, []string{SupervisorAgent, "ethics-analyst"}, result.Metrics.AgentPath)
	assert.Empty(t, result.Metrics.Handoffs)
	assert.Equal(t, 2, result.Metrics.Steps)
	assert.InDelta(t, 1.0, result.Metrics.Utilization["ethics-analyst"], 1e-9)
}

func TestCoordinator_HandoffIsRecordedAndRelayed(t *testing.T) {
	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("pinger", types.AgentCapability{ID: "p", Name: "ping", Category: "general", Reliability: 0.9}),
		onlineAgent("ponger", types.AgentCapability{ID: "q", Name: "pong", Category: "general", Reliability: 0.9}),
	}}
	relay := &recordingRelay{}
	c := New(DefaultConfig(), source, relay, nil, nil, WithScorer(&capabilityScorer{want: "ping"}))

	c.RegisterNode(NewFuncNode("pinger", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Handoff: &HandoffDecision{
			TargetAgent: "ponger",
			Reason:      "needs the responder",
			Confidence:  0.6,
		}}, nil
	}))
	c.RegisterNode(NewFuncNode("ponger", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Response: "pong"}, nil
	}))

	result, err := c.Run(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content:   "ping the responder",
		SessionID: "s-handoff",
	}))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "pong", result.Response)
	assert.Equal(t, []string{SupervisorAgent, "pinger", "ponger"}, result.Metrics.AgentPath)

	require.Len(t, result.Metrics.Handoffs, 1)
	assert.Equal(t, "pinger", result.Metrics.Handoffs[0].From)
	assert.Equal(t, "ponger", result.Metrics.Handoffs[0].To)

	relayed := relay.relayed()
	require.Len(t, relayed, 1)
	assert.Equal(t, types.MessageTaskDelegate, relayed[0].Type)
	assert.Equal(t, types.PriorityHigh, relayed[0].Priority)
	assert.Equal(t, "s-handoff", relayed[0].CorrelationID)
}

func TestCoordinator_PingPongExceedsMaxIterations(t *testing.T) {
	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("pinger", types.AgentCapability{ID: "p", Name: "ping", Category: "general", Reliability: 0.9}),
		onlineAgent("ponger", types.AgentCapability{ID: "q", Name: "pong", Category: "general", Reliability: 0.9}),
	}}
	c := New(DefaultConfig(), source, nil, nil, nil, WithScorer(&capabilityScorer{want: "ping"}))

	c.RegisterNode(NewFuncNode("pinger", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Handoff: &HandoffDecision{TargetAgent: "ponger", Reason: "your turn"}}, nil
	}))
	c.RegisterNode(NewFuncNode("ponger", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Handoff: &HandoffDecision{TargetAgent: "pinger", Reason: "no, yours"}}, nil
	}))

	result, err := c.Run(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content:       "ping forever",
		MaxIterations: 4,
	}))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMaxIterations))

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, 4, result.Metrics.Steps)
	assert.NotEmpty(t, result.Metrics.Handoffs)
}

func TestCoordinator_WallClockTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond

	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("pinger", types.AgentCapability{ID: "p", Name: "ping", Category: "general", Reliability: 0.9}),
		onlineAgent("ponger", types.AgentCapability{ID: "q", Name: "pong", Category: "general", Reliability: 0.9}),
	}}
	c := New(config, source, nil, nil, nil, WithScorer(&capabilityScorer{want: "ping"}))

	slowHandoff := func(target string) func(context.Context, *State) (*NodeResult, error) {
		return func(context.Context, *State) (*NodeResult, error) {
			time.Sleep(60 * time.Millisecond)
			return &NodeResult{Handoff: &HandoffDecision{TargetAgent: target, Reason: "passing along"}}, nil
		}
	}
	c.RegisterNode(NewFuncNode("pinger", slowHandoff("ponger")))
	c.RegisterNode(NewFuncNode("ponger", slowHandoff("pinger")))

	result, err := c.Run(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content: "ping slowly",
	}))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrWorkflowTimeout))
	assert.Equal(t, StatusError, result.Status)
}

func TestCoordinator_UnknownNextAgentEndsRun(t *testing.T) {
	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("pinger", types.AgentCapability{ID: "p", Name: "ping", Category: "general", Reliability: 0.9}),
	}}
	c := New(DefaultConfig(), source, nil, nil, nil, WithScorer(&capabilityScorer{want: "ping"}))

	c.RegisterNode(NewFuncNode("pinger", func(context.Context, *State) (*NodeResult, error) {
		return &NodeResult{Handoff: &HandoffDecision{TargetAgent: "nobody", Reason: "misdirected"}}, nil
	}))

	result, err := c.Run(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content: "ping into the void",
	}))
	require.NoError(t, err)

	// A handoff to an unavailable agent terminates the run instead of looping.
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.Response)
}

func TestCoordinator_NodeErrorFailsRun(t *testing.T) {
	source := &staticSource{profiles: []*types.AgentProfile{
		onlineAgent("pinger", types.AgentCapability{ID: "p", Name: "ping", Category: "general", Reliability: 0.9}),
	}}
	c := New(DefaultConfig(), source, nil, nil, nil, WithScorer(&capabilityScorer{want: "ping"}))

	c.RegisterNode(NewFuncNode("pinger", func(context.Context, *State) (*NodeResult, error) {
		return nil, errNodeBoom
	}))

	result, err := c.Run(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content: "ping and crash",
	}))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInternal))
	assert.Equal(t, StatusError, result.Status)
}

func TestCoordinator_StartWorkflowAcknowledges(t *testing.T) {
	c := New(DefaultConfig(), &staticSource{}, nil, nil, nil)

	resp, err := c.StartWorkflow(context.Background(), workflowMessage(t, &types.WorkflowPayload{
		Content:   "do the thing",
		SessionID: "s-ack",
	}))
	require.NoError(t, err)
	require.True(t, resp.Success)

	ack, ok := resp.Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "s-ack", ack["session_id"])
	assert.Equal(t, string(StatusRunning), ack["status"])
}

func TestCoordinator_StartWorkflowRejectsBadPayload(t *testing.T) {
	c := New(DefaultConfig(), &staticSource{}, nil, nil, nil)

	msg, err := types.NewMessage("user", SupervisorAgent, types.MessageWorkflowStart, &types.WorkflowPayload{})
	require.NoError(t, err)

	_, err = c.StartWorkflow(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMessage))
}

var errNodeBoom = types.NewError(types.ErrInternal, "node blew up")
