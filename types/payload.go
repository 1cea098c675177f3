package types

import (
	"encoding/json"
	"time"
)

// Typed payload shapes, one per message type. The envelope carries the
// payload as raw JSON; these decoders validate the message type before
// unmarshaling so a payload can never be read under the wrong tag.

// TaskPayload is carried by task_request messages.
type TaskPayload struct {
	TaskID             string          `json:"task_id"`
	Description        string          `json:"description,omitempty"`
	RequiredCapability string          `json:"required_capability"`
	Input              json.RawMessage `json:"input,omitempty"`
	Exclude            []string        `json:"exclude,omitempty"`
}

// DelegationPayload is carried by task_delegate messages, including the
// handoff relays emitted by the workflow coordinator.
type DelegationPayload struct {
	TaskID      string  `json:"task_id,omitempty"`
	FromAgent   string  `json:"from_agent"`
	TargetAgent string  `json:"target_agent"`
	Reason      string  `json:"reason,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Content     string  `json:"content,omitempty"`
}

// WorkflowPayload is carried by workflow_start messages.
type WorkflowPayload struct {
	Content       string `json:"content"`
	SessionID     string `json:"session_id,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// QueryPayload is carried by agent_query messages.
type QueryPayload struct {
	AgentType  string        `json:"agent_type,omitempty"`
	Statuses   []AgentStatus `json:"statuses,omitempty"`
	Capability string        `json:"capability,omitempty"`
}

// HealthPayload is carried by health_response messages.
type HealthPayload struct {
	AgentID   string         `json:"agent_id"`
	Healthy   bool           `json:"healthy"`
	Uptime    time.Duration  `json:"uptime,omitempty"`
	Stats     map[string]any `json:"stats,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// CapabilityQuery is carried by capability_request messages and drives the
// registry's capability search. Filters are applied before scoring: a
// capability that fails any filter is discarded outright.
type CapabilityQuery struct {
	Name           string   `json:"name,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	MinReliability float64  `json:"min_reliability,omitempty"`
	MaxCost        float64  `json:"max_cost,omitempty"`
	AvailableOnly  bool     `json:"available_only,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// CapabilityMatch is one scored result of a capability query.
type CapabilityMatch struct {
	AgentID    string          `json:"agent_id"`
	Capability AgentCapability `json:"capability"`
	Score      float64         `json:"score"`
}

func decode(m *Message, want MessageType, out any) error {
	if m.Type != want {
		return NewError(ErrInvalidMessageType,
			"expected "+string(want)+" message, got "+string(m.Type))
	}
	if len(m.Payload) == 0 {
		return NewError(ErrInvalidMessage, "message payload is empty")
	}
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return NewError(ErrInvalidMessage, "malformed "+string(want)+" payload").WithCause(err)
	}
	return nil
}

// DecodeTask extracts the TaskPayload from a task_request message.
func DecodeTask(m *Message) (*TaskPayload, error) {
	var p TaskPayload
	if err := decode(m, MessageTaskRequest, &p); err != nil {
		return nil, err
	}
	if p.RequiredCapability == "" {
		return nil, NewError(ErrInvalidMessage, "task_request requires a capability")
	}
	return &p, nil
}

// DecodeDelegation extracts the DelegationPayload from a task_delegate message.
func DecodeDelegation(m *Message) (*DelegationPayload, error) {
	var p DelegationPayload
	if err := decode(m, MessageTaskDelegate, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeWorkflow extracts the WorkflowPayload from a workflow_start message.
func DecodeWorkflow(m *Message) (*WorkflowPayload, error) {
	var p WorkflowPayload
	if err := decode(m, MessageWorkflowStart, &p); err != nil {
		return nil, err
	}
	if p.Content == "" {
		return nil, NewError(ErrInvalidMessage, "workflow_start requires content")
	}
	return &p, nil
}

// DecodeQuery extracts the QueryPayload from an agent_query message.
func DecodeQuery(m *Message) (*QueryPayload, error) {
	var p QueryPayload
	if err := decode(m, MessageAgentQuery, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeCapabilityQuery extracts the CapabilityQuery from a
// capability_request message.
func DecodeCapabilityQuery(m *Message) (*CapabilityQuery, error) {
	var q CapabilityQuery
	if err := decode(m, MessageCapabilityRequest, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
