package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentnet/registry"
	"github.com/BaSui01/agentnet/types"
)

func selectionProfile(id string, load float64, caps ...types.AgentCapability) *types.AgentProfile {
	return &types.AgentProfile{
		ID:           id,
		Type:         "worker",
		Status:       types.StatusOnline,
		Capabilities: caps,
		Metadata:     types.AgentMetadata{Load: load},
	}
}

func TestSelectBestRoute(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SelectBestRoute(nil))

	single := []registry.Route{{AgentID: "only", Reliability: 0.1, Load: 99}}
	got := SelectBestRoute(single)
	require.NotNil(t, got)
	assert.Equal(t, "only", got.AgentID, "single-route input is returned without scoring")

	routes := []registry.Route{
		{AgentID: "weak", Reliability: 0.5, Load: 80, ResponseTime: 900 * time.Millisecond, Cost: 90},
		{AgentID: "strong", Reliability: 0.9, Load: 10, ResponseTime: 100 * time.Millisecond, Cost: 20},
	}
	got = SelectBestRoute(routes)
	require.NotNil(t, got)
	assert.Equal(t, "strong", got.AgentID)

	// Same inputs, same winner.
	for i := 0; i < 10; i++ {
		again := SelectBestRoute(routes)
		require.NotNil(t, again)
		assert.Equal(t, "strong", again.AgentID)
	}
}

func TestRouteScore_Weights(t *testing.T) {
	t.Parallel()

	rt := &registry.Route{Reliability: 0.9, Load: 10, ResponseTime: 100 * time.Millisecond, Cost: 20}
	// 0.9*0.4 + 0.9*0.3 + 0.9*0.2 + 0.8*0.1 against a 1s ceiling.
	assert.InDelta(t, 0.89, routeScore(rt, time.Second), 1e-9)
}

func TestSelectAgent_LeastLoaded(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmLeastLoaded
	r := New(cfg, registry.New(registry.DefaultConfig(), nil, nil), nil, nil)

	cap := types.AgentCapability{ID: "c", Name: "translate", Category: "language", Reliability: 0.9}
	candidates := []*types.AgentProfile{
		selectionProfile("busy", 70, cap),
		selectionProfile("idle", 5, cap),
		selectionProfile("medium", 40, cap),
	}
	selected := r.selectAgent("translate", candidates)
	require.NotNil(t, selected)
	assert.Equal(t, "idle", selected.ID)
}

func TestSelectAgent_RoundRobinIsStablePerCapability(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRoundRobin
	r := New(cfg, registry.New(registry.DefaultConfig(), nil, nil), nil, nil)

	cap := types.AgentCapability{ID: "c", Name: "translate", Category: "language", Reliability: 0.9}
	candidates := []*types.AgentProfile{
		selectionProfile("alpha", 0, cap),
		selectionProfile("beta", 0, cap),
		selectionProfile("gamma", 0, cap),
	}

	// The pick hashes the capability name, so repeated calls for the same
	// capability land on the same agent while the set is stable.
	first := r.selectAgent("translate", candidates)
	require.NotNil(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first.ID, r.selectAgent("translate", candidates).ID)
	}
}

func TestSelectAgent_BestMatchPrefersSuccessRate(t *testing.T) {
	t.Parallel()

	r := New(DefaultConfig(), registry.New(registry.DefaultConfig(), nil, nil), nil, nil)

	cap := types.AgentCapability{ID: "c", Name: "translate", Category: "language", Reliability: 0.9, Cost: 20}
	proven := selectionProfile("proven", 10, cap)
	proven.Metadata.Performance = map[string]float64{"success_rate": 0.99}
	unproven := selectionProfile("unproven", 10, cap)

	selected := r.selectAgent("translate", []*types.AgentProfile{unproven, proven})
	require.NotNil(t, selected)
	assert.Equal(t, "proven", selected.ID)
}

func TestSelectAgent_EmptyAndSingle(t *testing.T) {
	t.Parallel()

	r := New(DefaultConfig(), registry.New(registry.DefaultConfig(), nil, nil), nil, nil)
	assert.Nil(t, r.selectAgent("translate", nil))

	only := selectionProfile("only", 0)
	assert.Equal(t, only, r.selectAgent("translate", []*types.AgentProfile{only}))
}

func TestFindBestAgent_UsesRoutingTable(t *testing.T) {
	reg := registry.New(registry.DefaultConfig(), nil, nil)
	r := New(DefaultConfig(), reg, nil, nil)

	strong := selectionProfile("strong", 10, types.AgentCapability{
		ID: "c1", Name: "translate", Category: "language", Reliability: 0.95, Cost: 10,
	})
	weak := selectionProfile("weak", 80, types.AgentCapability{
		ID: "c2", Name: "translate", Category: "language", Reliability: 0.5, Cost: 90,
	})
	require.NoError(t, reg.Register(strong))
	require.NoError(t, reg.Register(weak))
	r.RefreshRoutingTable()

	best := r.FindBestAgent("translate", nil)
	require.NotNil(t, best)
	assert.Equal(t, "strong", best.ID)

	best = r.FindBestAgent("translate", &SelectionCriteria{Exclude: []string{"strong"}})
	require.NotNil(t, best)
	assert.Equal(t, "weak", best.ID)

	assert.Nil(t, r.FindBestAgent("levitate", nil))
}
