package router

import (
	"sync"
	"time"

	"github.com/BaSui01/agentnet/registry"
)

// routingTable is a read-mostly cache of the registry's per-capability
// routes. It is replaced wholesale on each refresh, never patched
// incrementally, so readers may observe a view up to one refresh interval
// stale but never a partially updated one.
type routingTable struct {
	mu          sync.RWMutex
	routes      map[string][]registry.Route
	refreshedAt time.Time
}

func newRoutingTable() *routingTable {
	return &routingTable{routes: make(map[string][]registry.Route)}
}

func (t *routingTable) replace(topo *registry.Topology) {
	routes := make(map[string][]registry.Route, len(topo.MessageRoutes))
	for name, rs := range topo.MessageRoutes {
		copied := make([]registry.Route, len(rs))
		copy(copied, rs)
		routes[name] = copied
	}
	t.mu.Lock()
	t.routes = routes
	t.refreshedAt = time.Now()
	t.mu.Unlock()
}

func (t *routingTable) routesFor(capability string) []registry.Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rs := t.routes[capability]
	copied := make([]registry.Route, len(rs))
	copy(copied, rs)
	return copied
}

func (t *routingTable) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
