package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handoffState(agents ...string) *State {
	return &State{AvailableAgents: agents}
}

func TestDetectHandoff_RequiresTwoKeywordHits(t *testing.T) {
	t.Parallel()

	rules := []HandoffRule{
		{TargetAgent: "security-analyst", Keywords: []string{"vulnerability", "exploit", "breach"}},
	}
	state := handoffState("security-analyst", "helper")

	assert.Nil(t, DetectHandoff("we found a vulnerability", "helper", state, rules),
		"a single hit must not trigger a handoff")

	decision := DetectHandoff("the vulnerability looks like a remote exploit", "helper", state, rules)
	require.NotNil(t, decision)
	assert.Equal(t, "security-analyst", decision.TargetAgent)
	assert.InDelta(t, 0.6, decision.Confidence, 1e-9)
	assert.Contains(t, decision.Reason, "vulnerability")
}

func TestDetectHandoff_NeverTargetsSelfOrUnavailable(t *testing.T) {
	t.Parallel()

	rules := []HandoffRule{
		{TargetAgent: "security-analyst", Keywords: []string{"vulnerability", "exploit"}},
	}
	content := "the vulnerability looks like a remote exploit"

	assert.Nil(t, DetectHandoff(content, "security-analyst",
		handoffState("security-analyst"), rules))

	assert.Nil(t, DetectHandoff(content, "helper",
		handoffState("helper"), rules),
		"an absent target must not be handed to")
}

func TestDetectHandoff_MostHitsWins(t *testing.T) {
	t.Parallel()

	rules := []HandoffRule{
		{TargetAgent: "security-analyst", Keywords: []string{"vulnerability", "exploit"}},
		{TargetAgent: "incident-responder", Keywords: []string{"vulnerability", "exploit", "breach", "attack"}},
	}
	state := handoffState("security-analyst", "incident-responder", "helper")

	decision := DetectHandoff(
		"a vulnerability was used in an exploit during the breach attack",
		"helper", state, rules)
	require.NotNil(t, decision)
	assert.Equal(t, "incident-responder", decision.TargetAgent)
	assert.Equal(t, 1.0, decision.Confidence, "confidence caps at 1")
}

func TestFuncNode_DelegatesToFunction(t *testing.T) {
	t.Parallel()

	n := NewFuncNode("echo", func(_ context.Context, state *State) (*NodeResult, error) {
		return &NodeResult{Response: state.Content}, nil
	})
	assert.Equal(t, "echo", n.AgentID())

	result, err := n.Execute(context.Background(), &State{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Response)
}
