package coordinator

import (
	"context"
	"strings"
)

// HandoffDecision names a new target agent for the run, with a stated
// reason and confidence.
type HandoffDecision struct {
	TargetAgent string  `json:"target_agent"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}

// NodeResult is what a node execution produces: exactly one of a terminal
// response (completing the run) or a handoff decision (keeping it running).
type NodeResult struct {
	Response string
	Handoff  *HandoffDecision
}

// Node is an agent-side executor in the workflow state machine.
type Node interface {
	AgentID() string
	Execute(ctx context.Context, state *State) (*NodeResult, error)
}

// Executor is the contract an external agent implementation satisfies to
// participate in workflows: run one step, and advertise capability names for
// self-registration.
type Executor interface {
	Execute(ctx context.Context, state *State) (*NodeResult, error)
	Capabilities() []string
}

// AgentNode adapts an Executor into a workflow Node.
type AgentNode struct {
	agentID  string
	executor Executor
}

// NewAgentNode wraps an executor as the node for the given agent.
func NewAgentNode(agentID string, executor Executor) *AgentNode {
	return &AgentNode{agentID: agentID, executor: executor}
}

func (n *AgentNode) AgentID() string { return n.agentID }

func (n *AgentNode) Execute(ctx context.Context, state *State) (*NodeResult, error) {
	return n.executor.Execute(ctx, state)
}

// FuncNode adapts a bare function into a Node, for tests and simple agents.
type FuncNode struct {
	agentID string
	fn      func(ctx context.Context, state *State) (*NodeResult, error)
}

// NewFuncNode creates a function-backed node.
func NewFuncNode(agentID string, fn func(ctx context.Context, state *State) (*NodeResult, error)) *FuncNode {
	return &FuncNode{agentID: agentID, fn: fn}
}

func (n *FuncNode) AgentID() string { return n.agentID }

func (n *FuncNode) Execute(ctx context.Context, state *State) (*NodeResult, error) {
	return n.fn(ctx, state)
}

// HandoffRule maps a target agent to the keywords that suggest it should
// take over.
type HandoffRule struct {
	TargetAgent string
	Keywords    []string
}

// handoffThreshold is the keyword-hit count that makes a rule a handoff
// candidate.
const handoffThreshold = 2

// DetectHandoff applies the keyword-category handoff heuristic a
// non-supervisor node uses to decide whether to hand off instead of
// answering directly. A rule becomes a candidate when at least two of its
// keywords appear in the content AND its target is available and is not the
// node itself; otherwise the node should complete the task on its own. The
// best candidate (most hits) wins.
func DetectHandoff(content, selfAgent string, state *State, rules []HandoffRule) *HandoffDecision {
	text := strings.ToLower(content)

	var best *HandoffDecision
	bestHits := 0
	for _, rule := range rules {
		if rule.TargetAgent == selfAgent || !state.HasAgent(rule.TargetAgent) {
			continue
		}
		hits := 0
		matched := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hits++
				matched = append(matched, kw)
			}
		}
		if hits < handoffThreshold || hits <= bestHits {
			continue
		}
		confidence := float64(hits) * 0.3
		if confidence > 1 {
			confidence = 1
		}
		best = &HandoffDecision{
			TargetAgent: rule.TargetAgent,
			Reason:      "matched keywords: " + strings.Join(matched, ", "),
			Confidence:  confidence,
		}
		bestHits = hits
	}
	return best
}
