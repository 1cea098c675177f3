package types

import "time"

// AgentStatus represents the lifecycle status of a registered agent.
// Transitions are caller-driven except the automatic offline transition
// applied by the registry cleanup sweep after an inactivity threshold.
type AgentStatus string

const (
	StatusOnline      AgentStatus = "online"
	StatusOffline     AgentStatus = "offline"
	StatusBusy        AgentStatus = "busy"
	StatusMaintenance AgentStatus = "maintenance"
	StatusError       AgentStatus = "error"
)

// Valid reports whether the status is one of the defined values.
func (s AgentStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusBusy, StatusMaintenance, StatusError:
		return true
	}
	return false
}

// AgentCapability describes one skill an agent offers. Name is the lookup
// key within an agent; Cost and Reliability are validated in range at
// registration time.
type AgentCapability struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Cost        float64  `json:"cost"`        // 0-100
	Reliability float64  `json:"reliability"` // 0-1
	Version     string   `json:"version,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Validate checks the capability's required fields and numeric ranges.
func (c *AgentCapability) Validate() error {
	if c.ID == "" || c.Name == "" || c.Category == "" {
		return NewError(ErrValidation, "capability id, name, and category are required")
	}
	if c.Reliability < 0 || c.Reliability > 1 {
		return NewError(ErrValidation, "capability reliability must be in [0, 1]: "+c.Name)
	}
	if c.Cost < 0 || c.Cost > 100 {
		return NewError(ErrValidation, "capability cost must be in [0, 100]: "+c.Name)
	}
	return nil
}

// AgentMetadata carries the operational metadata of an agent.
type AgentMetadata struct {
	// Load is the current load of the agent (0-100).
	Load float64 `json:"load"`

	// Uptime is how long the agent has been running.
	Uptime time.Duration `json:"uptime,omitempty"`

	// Performance holds named performance statistics such as
	// "success_rate" (0-1) and "response_time" (milliseconds).
	Performance map[string]float64 `json:"performance,omitempty"`
}

// MetadataPatch is a partial metadata update applied by UpdateStatus. Nil
// fields are left untouched; Performance entries are merged key by key.
type MetadataPatch struct {
	Load        *float64           `json:"load,omitempty"`
	Uptime      *time.Duration     `json:"uptime,omitempty"`
	Performance map[string]float64 `json:"performance,omitempty"`
}

// AgentProfile is the registry's record of one agent: its identity, status,
// advertised capabilities, and operational metadata.
type AgentProfile struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Status       AgentStatus       `json:"status"`
	Capabilities []AgentCapability `json:"capabilities"`
	Metadata     AgentMetadata     `json:"metadata"`
	LastSeen     time.Time         `json:"last_seen"`
}

// Validate checks the profile's required fields and every capability.
func (p *AgentProfile) Validate() error {
	if p == nil {
		return NewError(ErrValidation, "agent profile is nil")
	}
	if p.ID == "" {
		return NewError(ErrValidation, "agent id is required")
	}
	if p.Type == "" {
		return NewError(ErrValidation, "agent type is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return NewError(ErrValidation, "unknown agent status: "+string(p.Status))
	}
	for i := range p.Capabilities {
		if err := p.Capabilities[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Online reports whether the agent is currently online.
func (p *AgentProfile) Online() bool {
	return p.Status == StatusOnline
}

// Capability returns the agent's capability with the given name.
func (p *AgentProfile) Capability(name string) (AgentCapability, bool) {
	for _, c := range p.Capabilities {
		if c.Name == name {
			return c, true
		}
	}
	return AgentCapability{}, false
}

// HasCapability reports whether the agent advertises the named capability.
func (p *AgentProfile) HasCapability(name string) bool {
	_, ok := p.Capability(name)
	return ok
}

// Clone returns a deep copy of the profile so registry snapshots can be
// handed to callers without exposing shared state.
func (p *AgentProfile) Clone() *AgentProfile {
	clone := *p
	clone.Capabilities = make([]AgentCapability, len(p.Capabilities))
	copy(clone.Capabilities, p.Capabilities)
	if p.Metadata.Performance != nil {
		clone.Metadata.Performance = make(map[string]float64, len(p.Metadata.Performance))
		for k, v := range p.Metadata.Performance {
			clone.Metadata.Performance[k] = v
		}
	}
	return &clone
}
