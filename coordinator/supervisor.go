package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentnet/types"
)

// SupervisorConfig holds configuration for the supervisor decision step.
type SupervisorConfig struct {
	// MinConfidence is the score a candidate must clear to be selected.
	// Below it the supervisor falls back to the default agent.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`

	// DefaultAgent is the designated fallback, conventionally the
	// technical-support agent.
	DefaultAgent string `yaml:"default_agent" json:"default_agent"`
}

// DefaultSupervisorConfig returns a SupervisorConfig with sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MinConfidence: 0.25,
		DefaultAgent:  "technical-support",
	}
}

// fallbackConfidence is the fixed confidence of a fallback decision.
const fallbackConfidence = 0.5

// Decision is the outcome of supervisor scoring: the chosen agent and
// capability, a human-readable justification, a confidence clipped to
// [0, 1], the second-best agent as fallback, and an estimated duration
// derived from the capability class and message length.
type Decision struct {
	SelectedAgent     string        `json:"selected_agent"`
	Capability        string        `json:"capability,omitempty"`
	Reasoning         string        `json:"reasoning"`
	Confidence        float64       `json:"confidence"`
	FallbackAgent     string        `json:"fallback_agent,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// Supervisor scores every (agent, capability) pair against message content
// and selects the next executor.
type Supervisor struct {
	scorer Scorer
	config SupervisorConfig
	logger *zap.Logger
}

// NewSupervisor creates a supervisor. A nil scorer gets the default keyword
// heuristic.
func NewSupervisor(config SupervisorConfig, scorer Scorer, logger *zap.Logger) *Supervisor {
	if scorer == nil {
		scorer = NewKeywordScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		scorer: scorer,
		config: config,
		logger: logger.With(zap.String("component", "supervisor")),
	}
}

// Decide scores all (agent, capability) pairs: the scorer's content
// relevance multiplied by capability reliability and the agent's inverse
// load. The highest pair wins; when nothing clears MinConfidence the
// designated default agent is selected with a fixed 0.5 confidence and no
// fallback.
func (s *Supervisor) Decide(ctx context.Context, content string, agents []*types.AgentProfile) *Decision {
	type candidate struct {
		agentID    string
		capability types.AgentCapability
		score      float64
	}

	var best, second *candidate
	for _, agent := range agents {
		loadFactor := 1 - agent.Metadata.Load/100
		if loadFactor < 0 {
			loadFactor = 0
		}
		for _, capability := range agent.Capabilities {
			relevance := s.scorer.Score(ctx, content, capability.Name)
			score := relevance * capability.Reliability * loadFactor
			if score == 0 {
				continue
			}
			c := &candidate{agentID: agent.ID, capability: capability, score: score}
			switch {
			case best == nil || c.score > best.score:
				if best != nil && best.agentID != c.agentID {
					second = best
				}
				best = c
			case (second == nil || c.score > second.score) && c.agentID != best.agentID:
				second = c
			}
		}
	}

	if best == nil || best.score < s.config.MinConfidence {
		return s.fallbackDecision(content, agents)
	}

	decision := &Decision{
		SelectedAgent: best.agentID,
		Capability:    best.capability.Name,
		Reasoning: fmt.Sprintf("capability %q scored %.2f against the message content (reliability %.2f)",
			best.capability.Name, best.score, best.capability.Reliability),
		Confidence:        clip01(best.score),
		EstimatedDuration: estimateDuration(best.capability.Category, content),
	}
	if second != nil {
		decision.FallbackAgent = second.agentID
	}

	s.logger.Debug("supervisor decision",
		zap.String("agent", decision.SelectedAgent),
		zap.String("capability", decision.Capability),
		zap.Float64("confidence", decision.Confidence))
	return decision
}

func (s *Supervisor) fallbackDecision(content string, agents []*types.AgentProfile) *Decision {
	selected := s.config.DefaultAgent
	reason := "no capability cleared the confidence threshold; routing to the default agent"
	if selected == "" || !containsAgent(agents, selected) {
		if len(agents) > 0 {
			selected = agents[0].ID
			reason = "no capability cleared the confidence threshold and the default agent is unavailable; routing to the first available agent"
		}
	}

	s.logger.Debug("supervisor fallback", zap.String("agent", selected))
	return &Decision{
		SelectedAgent:     selected,
		Reasoning:         reason,
		Confidence:        fallbackConfidence,
		EstimatedDuration: estimateDuration("", content),
	}
}

func containsAgent(agents []*types.AgentProfile, id string) bool {
	for _, a := range agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// estimateDuration derives a rough step duration from the capability class
// plus a component proportional to message length.
func estimateDuration(category, content string) time.Duration {
	base := 25 * time.Second
	switch strings.ToLower(category) {
	case "ethics", "ethical", "analysis":
		base = 30 * time.Second
	case "security":
		base = 40 * time.Second
	case "creative":
		base = 45 * time.Second
	case "technical", "support":
		base = 20 * time.Second
	}
	return base + time.Duration(len(content)/50)*time.Second
}
