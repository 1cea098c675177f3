package bus

import (
	"time"

	"github.com/BaSui01/agentnet/types"
)

// AgentRegistered is published when an agent joins the registry.
type AgentRegistered struct {
	AgentID      string
	AgentType    string
	Capabilities int
	At           time.Time
}

func (e *AgentRegistered) Timestamp() time.Time { return e.At }
func (e *AgentRegistered) Type() EventType      { return EventAgentRegistered }

// AgentUnregistered is published when an agent leaves the registry.
type AgentUnregistered struct {
	AgentID string
	At      time.Time
}

func (e *AgentUnregistered) Timestamp() time.Time { return e.At }
func (e *AgentUnregistered) Type() EventType      { return EventAgentUnregistered }

// AgentStatusChanged is published only when an agent's status actually
// changes, not on every status update call.
type AgentStatusChanged struct {
	AgentID string
	From    types.AgentStatus
	To      types.AgentStatus
	At      time.Time
}

func (e *AgentStatusChanged) Timestamp() time.Time { return e.At }
func (e *AgentStatusChanged) Type() EventType      { return EventAgentStatusChanged }

// MessageSent is published when a queued message is delivered.
type MessageSent struct {
	MessageID string
	From      string
	To        string
	MsgType   types.MessageType
	At        time.Time
}

func (e *MessageSent) Timestamp() time.Time { return e.At }
func (e *MessageSent) Type() EventType      { return EventMessageSent }

// MessageReceived is published when the router accepts a message for
// processing.
type MessageReceived struct {
	MessageID string
	From      string
	MsgType   types.MessageType
	At        time.Time
}

func (e *MessageReceived) Timestamp() time.Time { return e.At }
func (e *MessageReceived) Type() EventType      { return EventMessageReceived }

// MessageFailed is published when routing or delivery fails terminally,
// including retry exhaustion.
type MessageFailed struct {
	MessageID string
	To        string
	Reason    string
	At        time.Time
}

func (e *MessageFailed) Timestamp() time.Time { return e.At }
func (e *MessageFailed) Type() EventType      { return EventMessageFailed }

// WorkflowStarted is published when the coordinator begins a run.
type WorkflowStarted struct {
	SessionID string
	At        time.Time
}

func (e *WorkflowStarted) Timestamp() time.Time { return e.At }
func (e *WorkflowStarted) Type() EventType      { return EventWorkflowStarted }

// WorkflowCompleted is published when a run reaches a terminal completed
// status.
type WorkflowCompleted struct {
	SessionID string
	Steps     int
	Duration  time.Duration
	At        time.Time
}

func (e *WorkflowCompleted) Timestamp() time.Time { return e.At }
func (e *WorkflowCompleted) Type() EventType      { return EventWorkflowCompleted }

// WorkflowFailed is published when a run terminates with an error status.
type WorkflowFailed struct {
	SessionID string
	Reason    string
	At        time.Time
}

func (e *WorkflowFailed) Timestamp() time.Time { return e.At }
func (e *WorkflowFailed) Type() EventType      { return EventWorkflowFailed }

// TopologyChanged is published after any registry mutation that affects the
// network view.
type TopologyChanged struct {
	Agents int
	At     time.Time
}

func (e *TopologyChanged) Timestamp() time.Time { return e.At }
func (e *TopologyChanged) Type() EventType      { return EventTopologyChanged }

// CapabilityDiscovered is published with the result set of a capability
// query.
type CapabilityDiscovered struct {
	Query   string
	Matches int
	At      time.Time
}

func (e *CapabilityDiscovered) Timestamp() time.Time { return e.At }
func (e *CapabilityDiscovered) Type() EventType      { return EventCapabilityDiscovered }
