package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentnet/bus"
	"github.com/BaSui01/agentnet/internal/metrics"
	"github.com/BaSui01/agentnet/types"
)

// Config holds configuration for the capability registry.
type Config struct {
	// CleanupInterval is how often the cleanup sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// InactivityThreshold is how long an online agent may go without a
	// heartbeat before the sweep marks it offline.
	InactivityThreshold time.Duration `yaml:"inactivity_threshold" json:"inactivity_threshold"`

	// DefaultResponseTime is assumed for agents that report no
	// response_time performance stat, in milliseconds.
	DefaultResponseTime float64 `yaml:"default_response_time" json:"default_response_time"`

	// MinQueryScore is the score floor for capability query results.
	MinQueryScore float64 `yaml:"min_query_score" json:"min_query_score"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:     30 * time.Second,
		InactivityThreshold: 2 * time.Minute,
		DefaultResponseTime: 1000,
		MinQueryScore:       0.3,
	}
}

// Registry owns agent profiles and the capability indices derived from them.
// All state is guarded by a single RWMutex; snapshots handed to callers are
// deep copies so readers never observe concurrent mutation.
type Registry struct {
	mu sync.RWMutex

	// profiles stores registered agents by ID.
	profiles map[string]*types.AgentProfile

	// byName indexes capability name -> set of agent IDs.
	byName map[string]map[string]struct{}

	// byCategory indexes capability category -> set of agent IDs.
	byCategory map[string]map[string]struct{}

	// lastMutation timestamps the topology for snapshot staleness checks.
	lastMutation time.Time

	config    Config
	bus       bus.Bus
	store     *SnapshotStore
	collector *metrics.Collector
	logger    *zap.Logger

	started  bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithSnapshotStore attaches an optional Redis-backed snapshot store. The
// registry works fully without one.
func WithSnapshotStore(store *SnapshotStore) Option {
	return func(r *Registry) { r.store = store }
}

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Registry) { r.collector = c }
}

// New creates a capability registry. A nil bus disables event emission; a
// nil logger falls back to a no-op logger.
func New(config Config, eventBus bus.Bus, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		profiles:     make(map[string]*types.AgentProfile),
		byName:       make(map[string]map[string]struct{}),
		byCategory:   make(map[string]map[string]struct{}),
		config:       config,
		bus:          eventBus,
		logger:       logger.With(zap.String("component", "capability_registry")),
		done:         make(chan struct{}),
		lastMutation: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background cleanup sweep and, when a snapshot store is
// attached, restores the last persisted profile set.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return types.NewError(types.ErrAlreadyStarted, "registry already started")
	}
	r.started = true
	r.mu.Unlock()

	if r.store != nil {
		profiles, err := r.store.Load(ctx)
		if err != nil {
			r.logger.Warn("failed to restore registry snapshot", zap.Error(err))
		} else {
			for _, p := range profiles {
				// Restored agents start offline until they re-announce.
				p.Status = types.StatusOffline
				if err := r.Register(p); err != nil {
					r.logger.Warn("failed to restore agent", zap.String("agent", p.ID), zap.Error(err))
				}
			}
			r.logger.Info("restored registry snapshot", zap.Int("agents", len(profiles)))
		}
	}

	r.wg.Add(1)
	go r.cleanupLoop()
	r.logger.Info("capability registry started",
		zap.Duration("cleanup_interval", r.config.CleanupInterval))
	return nil
}

// Stop halts the cleanup sweep. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// Register validates and stores an agent profile, (re)indexing every
// capability by name and category. Re-registering an existing agent ID
// overwrites its profile without creating a duplicate entry.
func (r *Registry) Register(profile *types.AgentProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	stored := profile.Clone()
	if stored.Status == "" {
		stored.Status = types.StatusOnline
	}
	stored.LastSeen = time.Now()

	r.mu.Lock()
	if old, ok := r.profiles[stored.ID]; ok {
		r.deindexLocked(old)
	}
	r.profiles[stored.ID] = stored
	r.indexLocked(stored)
	r.lastMutation = time.Now()
	agentCount := len(r.profiles)
	r.mu.Unlock()

	r.logger.Info("agent registered",
		zap.String("agent", stored.ID),
		zap.String("type", stored.Type),
		zap.Int("capabilities", len(stored.Capabilities)))

	if r.collector != nil {
		r.collector.SetRegisteredAgents(agentCount)
	}
	r.publish(&bus.AgentRegistered{
		AgentID:      stored.ID,
		AgentType:    stored.Type,
		Capabilities: len(stored.Capabilities),
		At:           time.Now(),
	})
	r.publish(&bus.TopologyChanged{Agents: agentCount, At: time.Now()})
	r.persist()
	return nil
}

// Unregister purges an agent from the profile map and both indices. Unknown
// agent IDs are an idempotent no-op: nothing is mutated and no events fire.
func (r *Registry) Unregister(agentID string) {
	r.mu.Lock()
	profile, ok := r.profiles[agentID]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.deindexLocked(profile)
	delete(r.profiles, agentID)
	r.lastMutation = time.Now()
	agentCount := len(r.profiles)
	r.mu.Unlock()

	r.logger.Info("agent unregistered", zap.String("agent", agentID))

	if r.collector != nil {
		r.collector.SetRegisteredAgents(agentCount)
	}
	r.publish(&bus.AgentUnregistered{AgentID: agentID, At: time.Now()})
	r.publish(&bus.TopologyChanged{Agents: agentCount, At: time.Now()})
	r.persist()
}

// UpdateStatus changes an agent's status, merges an optional metadata patch,
// and refreshes LastSeen. The status-changed event fires only when the
// status actually changed.
func (r *Registry) UpdateStatus(agentID string, status types.AgentStatus, patch *types.MetadataPatch) error {
	if !status.Valid() {
		return types.NewError(types.ErrValidation, "unknown agent status: "+string(status))
	}

	r.mu.Lock()
	profile, ok := r.profiles[agentID]
	if !ok {
		r.mu.Unlock()
		return types.NewError(types.ErrAgentNotFound, "unknown agent: "+agentID).WithAgent(agentID)
	}
	previous := profile.Status
	profile.Status = status
	profile.LastSeen = time.Now()
	if patch != nil {
		if patch.Load != nil {
			profile.Metadata.Load = *patch.Load
		}
		if patch.Uptime != nil {
			profile.Metadata.Uptime = *patch.Uptime
		}
		if len(patch.Performance) > 0 {
			if profile.Metadata.Performance == nil {
				profile.Metadata.Performance = make(map[string]float64, len(patch.Performance))
			}
			for k, v := range patch.Performance {
				profile.Metadata.Performance[k] = v
			}
		}
	}
	r.lastMutation = time.Now()
	r.mu.Unlock()

	if previous != status {
		r.logger.Info("agent status changed",
			zap.String("agent", agentID),
			zap.String("from", string(previous)),
			zap.String("to", string(status)))
		r.publish(&bus.AgentStatusChanged{
			AgentID: agentID,
			From:    previous,
			To:      status,
			At:      time.Now(),
		})
	}
	r.persist()
	return nil
}

// Get returns a copy of the profile for the given agent ID.
func (r *Registry) Get(agentID string) (*types.AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[agentID]
	if !ok {
		return nil, types.NewError(types.ErrAgentNotFound, "unknown agent: "+agentID).WithAgent(agentID)
	}
	return profile.Clone(), nil
}

// Discover returns all profiles whose status is not offline.
func (r *Registry) Discover() []*types.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*types.AgentProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if p.Status != types.StatusOffline {
			result = append(result, p.Clone())
		}
	}
	return result
}

// FindByCapability returns the agents that index the named capability and
// are currently online. Offline agents stay in the index; they are filtered
// out at query time, not removed.
func (r *Registry) FindByCapability(name string) []*types.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectOnlineLocked(r.byName[name])
}

// FindByCategory returns the online agents indexed under the given category.
func (r *Registry) FindByCategory(category string) []*types.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectOnlineLocked(r.byCategory[category])
}

func (r *Registry) collectOnlineLocked(ids map[string]struct{}) []*types.AgentProfile {
	result := make([]*types.AgentProfile, 0, len(ids))
	for id := range ids {
		if p, ok := r.profiles[id]; ok && p.Online() {
			result = append(result, p.Clone())
		}
	}
	return result
}

func (r *Registry) indexLocked(p *types.AgentProfile) {
	for _, c := range p.Capabilities {
		if r.byName[c.Name] == nil {
			r.byName[c.Name] = make(map[string]struct{})
		}
		r.byName[c.Name][p.ID] = struct{}{}
		if r.byCategory[c.Category] == nil {
			r.byCategory[c.Category] = make(map[string]struct{})
		}
		r.byCategory[c.Category][p.ID] = struct{}{}
	}
}

func (r *Registry) deindexLocked(p *types.AgentProfile) {
	for _, c := range p.Capabilities {
		if set := r.byName[c.Name]; set != nil {
			delete(set, p.ID)
			if len(set) == 0 {
				delete(r.byName, c.Name)
			}
		}
		if set := r.byCategory[c.Category]; set != nil {
			delete(set, p.ID)
			if len(set) == 0 {
				delete(r.byCategory, c.Category)
			}
		}
	}
}

func (r *Registry) publish(event bus.Event) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}

// persist asynchronously saves the current profile set when a snapshot store
// is attached. Persistence failures are logged, never surfaced to callers.
func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	r.mu.RLock()
	profiles := make([]*types.AgentProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p.Clone())
	}
	r.mu.RUnlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.Save(ctx, profiles); err != nil {
			r.logger.Warn("failed to persist registry snapshot", zap.Error(err))
		}
	}()
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.done:
			return
		}
	}
}

// Sweep transitions every online agent whose LastSeen is older than the
// inactivity threshold to offline. The transition is idempotent: an agent
// already offline is untouched, so repeated sweeps with no further
// inactivity fire the status-changed event at most once. A failure for one
// agent never aborts the rest of the sweep.
func (r *Registry) Sweep() {
	cutoff := time.Now().Add(-r.config.InactivityThreshold)

	r.mu.RLock()
	stale := make([]string, 0)
	for id, p := range r.profiles {
		if p.Status == types.StatusOnline && p.LastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		if err := r.UpdateStatus(id, types.StatusOffline, nil); err != nil {
			// The agent may have been unregistered since the scan.
			r.logger.Warn("cleanup sweep failed for agent", zap.String("agent", id), zap.Error(err))
			continue
		}
		r.logger.Info("agent marked offline by cleanup sweep", zap.String("agent", id))
	}
}
