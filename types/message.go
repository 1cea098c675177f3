package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message being exchanged. The set is
// closed: routing a message whose type is not one of these values fails
// validation before any state is touched.
type MessageType string

const (
	MessageAgentAnnounce      MessageType = "agent_announce"
	MessageAgentQuery         MessageType = "agent_query"
	MessageCapabilityRequest  MessageType = "capability_request"
	MessageCapabilityResponse MessageType = "capability_response"
	MessageTaskRequest        MessageType = "task_request"
	MessageTaskResponse       MessageType = "task_response"
	MessageTaskDelegate       MessageType = "task_delegate"
	MessageTaskStatus         MessageType = "task_status"
	MessageTaskCancel         MessageType = "task_cancel"
	MessageWorkflowStart      MessageType = "workflow_start"
	MessageWorkflowStep       MessageType = "workflow_step"
	MessageWorkflowComplete   MessageType = "workflow_complete"
	MessageWorkflowError      MessageType = "workflow_error"
	MessageHealthCheck        MessageType = "health_check"
	MessageHealthResponse     MessageType = "health_response"
	MessageStatusUpdate       MessageType = "status_update"
	MessageErrorReport        MessageType = "error_report"
	MessageAgentOnline        MessageType = "agent_online"
	MessageAgentOffline       MessageType = "agent_offline"
	MessageNetworkBroadcast   MessageType = "network_broadcast"
)

var messageTypes = map[MessageType]struct{}{
	MessageAgentAnnounce:      {},
	MessageAgentQuery:         {},
	MessageCapabilityRequest:  {},
	MessageCapabilityResponse: {},
	MessageTaskRequest:        {},
	MessageTaskResponse:       {},
	MessageTaskDelegate:       {},
	MessageTaskStatus:         {},
	MessageTaskCancel:         {},
	MessageWorkflowStart:      {},
	MessageWorkflowStep:       {},
	MessageWorkflowComplete:   {},
	MessageWorkflowError:      {},
	MessageHealthCheck:        {},
	MessageHealthResponse:     {},
	MessageStatusUpdate:       {},
	MessageErrorReport:        {},
	MessageAgentOnline:        {},
	MessageAgentOffline:       {},
	MessageNetworkBroadcast:   {},
}

// Valid reports whether the message type is a member of the closed enum.
func (t MessageType) Valid() bool {
	_, ok := messageTypes[t]
	return ok
}

// Priority determines which of the four strict-precedence queue lanes a
// message is placed in.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Priorities lists all priorities from most to least urgent. The router
// services its queues in exactly this order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

// Valid reports whether the priority is one of the four defined lanes.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Well-known message targets.
const (
	// TargetBroadcast fans the message out to every online agent.
	TargetBroadcast = "broadcast"
	// TargetAuto lets the router pick the destination agent.
	TargetAuto = "auto"
)

// Message is the wire-level envelope other systems must honor to
// interoperate. Payload is a tagged union keyed by Type; one payload shape
// per type, decoded and validated at the boundary (see payload.go).
type Message struct {
	ID            string            `json:"id"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Type          MessageType       `json:"type"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Priority      Priority          `json:"priority"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	TTL           time.Duration     `json:"ttl,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewMessage creates a message with a generated ID, the given routing fields,
// and the payload marshaled into the envelope. Priority defaults to normal.
func NewMessage(from, to string, typ MessageType, payload any) (*Message, error) {
	m := &Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      typ,
		Timestamp: time.Now(),
		Priority:  PriorityNormal,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, NewError(ErrInvalidMessage, "failed to marshal payload").WithCause(err)
		}
		m.Payload = raw
	}
	return m, nil
}

// WithPriority sets the message priority.
func (m *Message) WithPriority(p Priority) *Message {
	m.Priority = p
	return m
}

// WithCorrelation sets the correlation ID used to tie responses back to the
// originating request or workflow session.
func (m *Message) WithCorrelation(id string) *Message {
	m.CorrelationID = id
	return m
}

// Validate checks the required envelope fields and enum memberships.
func (m *Message) Validate() error {
	if m == nil {
		return NewError(ErrInvalidMessage, "message is nil")
	}
	if m.ID == "" {
		return NewError(ErrInvalidMessage, "message id is required")
	}
	if m.From == "" {
		return NewError(ErrInvalidMessage, "message sender is required")
	}
	if m.To == "" {
		return NewError(ErrInvalidMessage, "message target is required")
	}
	if !m.Type.Valid() {
		return NewError(ErrInvalidMessageType, "unknown message type: "+string(m.Type))
	}
	if m.Priority != "" && !m.Priority.Valid() {
		return NewError(ErrInvalidMessage, "unknown priority: "+string(m.Priority))
	}
	return nil
}

// CloneFor returns a per-recipient copy of the message for broadcast fan-out.
// The clone gets a derived ID of the form "<originalID>-<agentID>" so each
// recipient's delivery can be tracked independently.
func (m *Message) CloneFor(agentID string) *Message {
	clone := *m
	clone.ID = m.ID + "-" + agentID
	clone.To = agentID
	if m.Metadata != nil {
		clone.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Expired reports whether the message TTL has elapsed relative to its
// timestamp. Messages without a TTL never expire.
func (m *Message) Expired(now time.Time) bool {
	return m.TTL > 0 && now.Sub(m.Timestamp) > m.TTL
}
