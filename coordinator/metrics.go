package coordinator

import "time"

// Handoff records one transfer of control between agents during a run,
// as relayed through the router.
type Handoff struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// RunMetrics is derived from a run on termination: the ordered distinct
// agents visited, the handoff chain, and each agent's share of the
// responses produced.
type RunMetrics struct {
	AgentPath   []string           `json:"agent_path"`
	Handoffs    []Handoff          `json:"handoffs"`
	Utilization map[string]float64 `json:"utilization"`
	Steps       int                `json:"steps"`
	Duration    time.Duration      `json:"duration"`
}

func extractMetrics(visited []string, handoffs []Handoff, state *State, duration time.Duration) RunMetrics {
	path := make([]string, 0, len(visited))
	seen := make(map[string]struct{}, len(visited))
	for _, agent := range visited {
		if _, ok := seen[agent]; ok {
			continue
		}
		seen[agent] = struct{}{}
		path = append(path, agent)
	}

	utilization := make(map[string]float64)
	if len(state.History) > 0 {
		share := 1.0 / float64(len(state.History))
		for _, exchange := range state.History {
			utilization[exchange.Agent] += share
		}
	}

	return RunMetrics{
		AgentPath:   path,
		Handoffs:    handoffs,
		Utilization: utilization,
		Steps:       state.Steps,
		Duration:    duration,
	}
}
