package registry

import (
	"time"

	"github.com/BaSui01/agentnet/types"
)

// Route is a resolvable path from a capability to a specific agent, scored
// by the router. Routes are recomputed from the registry snapshot on demand,
// never persisted independently.
type Route struct {
	AgentID      string        `json:"agent_id"`
	Capability   string        `json:"capability"`
	Cost         float64       `json:"cost"`
	Reliability  float64       `json:"reliability"`
	ResponseTime time.Duration `json:"response_time"`
	Load         float64       `json:"load"`
}

// Connection is a directed edge in the network view.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Topology is a point-in-time snapshot of the network: which agents exist,
// how they connect, and which routes serve which capabilities. Snapshots are
// replaced wholesale, so readers always see a consistent, if possibly stale,
// view.
//
// Connections are currently a full mesh: every agent is assumed reachable
// from every other. Real reachability is not modeled; deriving connectivity
// from actual agent relationships remains an open question upstream of this
// implementation.
type Topology struct {
	Agents        map[string]*types.AgentProfile `json:"agents"`
	Connections   []Connection                   `json:"connections"`
	MessageRoutes map[string][]Route             `json:"message_routes"`
	LastUpdated   time.Time                      `json:"last_updated"`
}

// Topology builds a snapshot from current registry state: all profiles, a
// full mesh of connections, and per-capability route lists carrying cost,
// reliability, response time (from performance stats, defaulting to the
// configured response time), and load.
func (r *Registry) Topology() *Topology {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topo := &Topology{
		Agents:        make(map[string]*types.AgentProfile, len(r.profiles)),
		MessageRoutes: make(map[string][]Route, len(r.byName)),
		LastUpdated:   r.lastMutation,
	}
	for id, p := range r.profiles {
		topo.Agents[id] = p.Clone()
	}
	for from := range r.profiles {
		for to := range r.profiles {
			if from != to {
				topo.Connections = append(topo.Connections, Connection{From: from, To: to})
			}
		}
	}
	for name, ids := range r.byName {
		routes := make([]Route, 0, len(ids))
		for id := range ids {
			p, ok := r.profiles[id]
			if !ok {
				continue
			}
			c, ok := p.Capability(name)
			if !ok {
				continue
			}
			responseTime := r.config.DefaultResponseTime
			if rt, ok := p.Metadata.Performance["response_time"]; ok && rt > 0 {
				responseTime = rt
			}
			routes = append(routes, Route{
				AgentID:      id,
				Capability:   name,
				Cost:         c.Cost,
				Reliability:  c.Reliability,
				ResponseTime: time.Duration(responseTime) * time.Millisecond,
				Load:         p.Metadata.Load,
			})
		}
		topo.MessageRoutes[name] = routes
	}
	return topo
}
