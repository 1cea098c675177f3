package router

import (
	"hash/fnv"
	"sort"
	"time"

	"github.com/BaSui01/agentnet/registry"
	"github.com/BaSui01/agentnet/types"
)

// Algorithm selects which agent services a task request when more than one
// offers the required capability.
type Algorithm string

const (
	// AlgorithmRoundRobin picks by a hash of the capability name modulo
	// the online-agent count. The hash key is the capability, not a
	// rotating counter, so successive calls for the same capability land
	// on the same agent while the agent set is stable. That quirk is
	// inherited behavior; callers wanting true rotation should use a
	// different algorithm.
	AlgorithmRoundRobin Algorithm = "round_robin"

	// AlgorithmLeastLoaded picks the agent with the minimum reported load.
	AlgorithmLeastLoaded Algorithm = "least_loaded"

	// AlgorithmBestMatch picks by a composite of reliability, load,
	// historical success rate, and cost. This is the default.
	AlgorithmBestMatch Algorithm = "best_match"
)

// Route scoring weights used by SelectBestRoute.
const (
	weightReliability  = 0.4
	weightLoad         = 0.3
	weightResponseTime = 0.2
	weightCost         = 0.1
)

// SelectionCriteria narrows FindBestAgent candidates.
type SelectionCriteria struct {
	// Exclude lists agent IDs that must not be selected.
	Exclude []string
}

func (c *SelectionCriteria) excluded(agentID string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.Exclude {
		if id == agentID {
			return true
		}
	}
	return false
}

// selectAgent applies the configured algorithm to the candidate set. The
// candidates are sorted by ID first so every algorithm is deterministic for
// a given agent set.
func (r *Router) selectAgent(capability string, candidates []*types.AgentProfile) *types.AgentProfile {
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	if len(candidates) == 1 {
		return candidates[0]
	}

	switch r.config.Algorithm {
	case AlgorithmRoundRobin:
		h := fnv.New32a()
		h.Write([]byte(capability))
		return candidates[int(h.Sum32())%len(candidates)]
	case AlgorithmLeastLoaded:
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Metadata.Load < best.Metadata.Load {
				best = c
			}
		}
		return best
	default: // AlgorithmBestMatch
		best := candidates[0]
		bestScore := compositeScore(best, capability)
		for _, c := range candidates[1:] {
			if s := compositeScore(c, capability); s > bestScore {
				best, bestScore = c, s
			}
		}
		return best
	}
}

// compositeScore rates an agent for a capability:
// reliability*0.4 + inverse load*0.3 + success rate*0.2 + inverse cost*0.1.
// Agents with no recorded success_rate stat contribute a flat 0.1 for that
// term instead of the weighted rate.
func compositeScore(p *types.AgentProfile, capability string) float64 {
	var reliability, cost float64
	if c, ok := p.Capability(capability); ok {
		reliability = c.Reliability
		cost = c.Cost
	}

	score := reliability*0.4 + (100-p.Metadata.Load)/100*0.3
	if rate, ok := p.Metadata.Performance["success_rate"]; ok {
		score += rate * 0.2
	} else {
		score += 0.1
	}
	score += (100 - cost) / 100 * 0.1
	return score
}

// SelectBestRoute scores routes by reliability (40%), inverse load (30%),
// inverse response time normalized against the slowest compared route or
// one second (20%), and inverse cost (10%), returning the highest scorer.
// A single-route input is returned immediately without scoring.
func SelectBestRoute(routes []registry.Route) *registry.Route {
	switch len(routes) {
	case 0:
		return nil
	case 1:
		return &routes[0]
	}

	maxRT := time.Second
	for _, rt := range routes {
		if rt.ResponseTime > maxRT {
			maxRT = rt.ResponseTime
		}
	}

	best := &routes[0]
	bestScore := routeScore(best, maxRT)
	for i := 1; i < len(routes); i++ {
		if s := routeScore(&routes[i], maxRT); s > bestScore {
			best, bestScore = &routes[i], s
		}
	}
	return best
}

func routeScore(rt *registry.Route, maxRT time.Duration) float64 {
	return rt.Reliability*weightReliability +
		(1-rt.Load/100)*weightLoad +
		(1-float64(rt.ResponseTime)/float64(maxRT))*weightResponseTime +
		(1-rt.Cost/100)*weightCost
}

// FindBestAgent resolves the best-scoring online agent behind the routing
// table's routes for a capability, honoring the exclusion list. Returns nil
// when no route qualifies.
func (r *Router) FindBestAgent(capability string, criteria *SelectionCriteria) *types.AgentProfile {
	routes := r.table.routesFor(capability)
	eligible := make([]registry.Route, 0, len(routes))
	for _, rt := range routes {
		if criteria.excluded(rt.AgentID) {
			continue
		}
		profile, err := r.directory.Get(rt.AgentID)
		if err != nil || !profile.Online() {
			continue
		}
		eligible = append(eligible, rt)
	}
	best := SelectBestRoute(eligible)
	if best == nil {
		return nil
	}
	profile, err := r.directory.Get(best.AgentID)
	if err != nil {
		return nil
	}
	return profile
}
