package coordinator

import (
	"time"
)

// Status is the workflow run status.
type Status string

const (
	StatusRunning   Status = "running"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// SupervisorAgent is the reserved agent name for the supervisor decision
// step. Every run enters the state machine here.
const SupervisorAgent = "supervisor"

// Exchange is one entry in a run's message history: which agent produced
// what content.
type Exchange struct {
	Agent   string    `json:"agent"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// State is the execution context of one workflow run. Step counters only
// ever increase; NextAgent, when set, must name a member of
// AvailableAgents or the routing edge terminates the run.
type State struct {
	SessionID       string     `json:"session_id"`
	Content         string     `json:"content"`
	History         []Exchange `json:"history"`
	CurrentAgent    string     `json:"current_agent"`
	AvailableAgents []string   `json:"available_agents"`
	NextAgent       string     `json:"next_agent,omitempty"`
	Status          Status     `json:"status"`
	Steps           int        `json:"steps"`
	StartedAt       time.Time  `json:"started_at"`
}

// AddExchange appends to the run's message history.
func (s *State) AddExchange(agent, content string) {
	s.History = append(s.History, Exchange{Agent: agent, Content: content, At: time.Now()})
}

// HasAgent reports whether the agent is in the run's available set.
func (s *State) HasAgent(agentID string) bool {
	for _, id := range s.AvailableAgents {
		if id == agentID {
			return true
		}
	}
	return false
}

// LatestContent returns the most recent user-originated content: the last
// history entry, or the original message when nothing has been produced yet.
func (s *State) LatestContent() string {
	if len(s.History) == 0 {
		return s.Content
	}
	return s.History[len(s.History)-1].Content
}
