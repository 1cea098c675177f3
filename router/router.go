package router

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentnet/bus"
	"github.com/BaSui01/agentnet/internal/metrics"
	"github.com/BaSui01/agentnet/registry"
	"github.com/BaSui01/agentnet/types"
)

// Directory is the registry surface the router depends on. *registry.Registry
// satisfies it.
type Directory interface {
	Get(agentID string) (*types.AgentProfile, error)
	Discover() []*types.AgentProfile
	FindByCapability(name string) []*types.AgentProfile
	QueryCapabilities(query *types.CapabilityQuery) []types.CapabilityMatch
	Topology() *registry.Topology
}

// WorkflowHandler is the integration point for workflow_start messages. The
// coordinator implements it; the router itself only acknowledges receipt.
type WorkflowHandler interface {
	StartWorkflow(ctx context.Context, msg *types.Message) (*types.Response, error)
}

// Config holds configuration for the message router.
type Config struct {
	// Algorithm selects agents for task requests.
	Algorithm Algorithm `yaml:"algorithm" json:"algorithm"`

	// MaxRetries bounds redelivery attempts for a failed queued message.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// ProcessInterval is the background processor tick. At most one
	// message is serviced per tick.
	ProcessInterval time.Duration `yaml:"process_interval" json:"process_interval"`

	// RefreshInterval is how often the routing table is rebuilt from the
	// registry topology.
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval"`

	// DeliveryTimeout bounds one transport delivery attempt.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" json:"delivery_timeout"`

	// RatePerSecond caps message intake. Zero disables the limiter.
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`

	// RateBurst is the limiter burst size.
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`

	// BreakerThreshold is the consecutive delivery failures that open an
	// agent's circuit breaker. Zero disables breakers.
	BreakerThreshold uint32 `yaml:"breaker_threshold" json:"breaker_threshold"`

	// BreakerCooldown is how long an open breaker waits before probing.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" json:"breaker_cooldown"`

	// BroadcastParallelism bounds concurrent broadcast deliveries.
	BroadcastParallelism int64 `yaml:"broadcast_parallelism" json:"broadcast_parallelism"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Algorithm:            AlgorithmBestMatch,
		MaxRetries:           3,
		ProcessInterval:      10 * time.Millisecond,
		RefreshInterval:      30 * time.Second,
		DeliveryTimeout:      5 * time.Second,
		BreakerThreshold:     5,
		BreakerCooldown:      30 * time.Second,
		BroadcastParallelism: 8,
	}
}

// Router validates, classifies, and dispatches messages: direct to a named
// agent, fanned out to all online agents, or handed to the workflow
// coordinator. Queued deliveries flow through four strict-priority FIFO
// lanes drained by a background processor.
type Router struct {
	config    Config
	directory Directory
	transport Transport
	queues    *priorityQueues
	table     *routingTable
	limiter   *rate.Limiter
	bus       bus.Bus
	collector *metrics.Collector
	logger    *zap.Logger

	workflowMu sync.RWMutex
	workflow   WorkflowHandler

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[*types.Response]

	startedAt time.Time
	processed atomic.Int64
	failed    atomic.Int64

	started  bool
	startMu  sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithTransport replaces the default loopback transport.
func WithTransport(t Transport) Option {
	return func(r *Router) { r.transport = t }
}

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Router) { r.collector = c }
}

// New creates a message router over the given directory. A nil bus disables
// event emission; a nil logger falls back to a no-op logger.
func New(config Config, directory Directory, eventBus bus.Bus, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		config:    config,
		directory: directory,
		transport: NewLoopback(),
		queues:    newPriorityQueues(),
		table:     newRoutingTable(),
		bus:       eventBus,
		logger:    logger.With(zap.String("component", "message_router")),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*types.Response]),
		done:      make(chan struct{}),
	}
	if config.RatePerSecond > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = int(config.RatePerSecond)
		}
		r.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetWorkflowHandler wires the workflow coordinator integration point.
func (r *Router) SetWorkflowHandler(h WorkflowHandler) {
	r.workflowMu.Lock()
	r.workflow = h
	r.workflowMu.Unlock()
}

// Start refreshes the routing table once and launches the queue processor
// and the periodic table refresh.
func (r *Router) Start(ctx context.Context) error {
	r.startMu.Lock()
	if r.started {
		r.startMu.Unlock()
		return types.NewError(types.ErrAlreadyStarted, "router already started")
	}
	r.started = true
	r.startedAt = time.Now()
	r.startMu.Unlock()

	r.RefreshRoutingTable()

	r.wg.Add(2)
	go r.processLoop()
	go r.refreshLoop()

	r.logger.Info("message router started",
		zap.String("algorithm", string(r.config.Algorithm)),
		zap.Duration("process_interval", r.config.ProcessInterval))
	return nil
}

// Stop halts the background loops. Queued messages that were not serviced
// are left unresolved; there is no per-message cancellation beyond retry
// exhaustion.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// RouteMessage validates and dispatches a message. Validation failures are
// returned as errors before any state mutation or queueing. Failures during
// dispatch are caught, emitted as message.failed, and returned as a resolved
// failure delivery rather than an error, so one bad message never disturbs
// others already queued.
func (r *Router) RouteMessage(ctx context.Context, msg *types.Message) (*Delivery, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if r.limiter != nil && !r.limiter.Allow() {
		return nil, types.NewError(types.ErrRateLimited, "message intake rate exceeded").WithRetryable(true)
	}

	if r.collector != nil {
		r.collector.MessageRouted(string(msg.Type))
	}
	r.publish(&bus.MessageReceived{
		MessageID: msg.ID,
		From:      msg.From,
		MsgType:   msg.Type,
		At:        time.Now(),
	})

	delivery, err := r.dispatch(ctx, msg)
	if err != nil {
		r.logger.Warn("message routing failed",
			zap.String("message", msg.ID),
			zap.String("type", string(msg.Type)),
			zap.Error(err))
		r.failed.Add(1)
		if r.collector != nil {
			r.collector.MessageFailed(string(types.GetErrorCode(err)))
		}
		r.publish(&bus.MessageFailed{
			MessageID: msg.ID,
			To:        msg.To,
			Reason:    err.Error(),
			At:        time.Now(),
		})
		return resolvedDelivery(msg.ID, types.Fail(err)), nil
	}
	return delivery, nil
}

func (r *Router) dispatch(ctx context.Context, msg *types.Message) (*Delivery, error) {
	switch msg.Type {
	case types.MessageTaskRequest:
		return r.dispatchTask(msg)

	case types.MessageCapabilityRequest:
		query, err := types.DecodeCapabilityQuery(msg)
		if err != nil {
			return nil, err
		}
		matches := r.directory.QueryCapabilities(query)
		return resolvedDelivery(msg.ID, types.OK(matches).WithCapability(query.Name)), nil

	case types.MessageWorkflowStart:
		r.workflowMu.RLock()
		handler := r.workflow
		r.workflowMu.RUnlock()
		if handler == nil {
			return nil, types.NewError(types.ErrNotStarted, "no workflow handler configured")
		}
		resp, err := handler.StartWorkflow(ctx, msg)
		if err != nil {
			return nil, err
		}
		return resolvedDelivery(msg.ID, resp), nil

	case types.MessageHealthCheck:
		if msg.To == types.TargetBroadcast {
			return resolvedDelivery(msg.ID, types.OK(r.Stats())), nil
		}
		return r.dispatchDirect(msg)

	case types.MessageAgentQuery:
		query, err := types.DecodeQuery(msg)
		if err != nil {
			return nil, err
		}
		return resolvedDelivery(msg.ID, types.OK(filterProfiles(r.directory.Discover(), query))), nil

	default:
		if msg.To == types.TargetBroadcast {
			results := r.BroadcastMessage(ctx, msg)
			return resolvedDelivery(msg.ID, types.OK(results)), nil
		}
		return r.dispatchDirect(msg)
	}
}

// dispatchTask resolves a task_request to the best online agent offering the
// required capability and enqueues a delegation message to it.
func (r *Router) dispatchTask(msg *types.Message) (*Delivery, error) {
	task, err := types.DecodeTask(msg)
	if err != nil {
		return nil, err
	}

	candidates := r.directory.FindByCapability(task.RequiredCapability)
	criteria := &SelectionCriteria{Exclude: task.Exclude}
	eligible := candidates[:0]
	for _, c := range candidates {
		if !criteria.excluded(c.ID) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, types.NewError(types.ErrCapabilityNotFound,
			"no online agent offers capability: "+task.RequiredCapability)
	}

	selected := r.selectAgent(task.RequiredCapability, eligible)
	delegate, err := types.NewMessage(msg.From, selected.ID, types.MessageTaskDelegate, &types.DelegationPayload{
		TaskID:      task.TaskID,
		FromAgent:   msg.From,
		TargetAgent: selected.ID,
		Content:     task.Description,
	})
	if err != nil {
		return nil, err
	}
	delegate.Priority = msg.Priority
	delegate.CorrelationID = msg.CorrelationID

	r.logger.Debug("task delegated",
		zap.String("capability", task.RequiredCapability),
		zap.String("agent", selected.ID))
	return r.enqueue(delegate), nil
}

// dispatchDirect enqueues a message addressed to one specific agent,
// failing fast when the agent is unknown or not online.
func (r *Router) dispatchDirect(msg *types.Message) (*Delivery, error) {
	profile, err := r.directory.Get(msg.To)
	if err != nil {
		return nil, err
	}
	if !profile.Online() {
		return nil, types.NewError(types.ErrAgentOffline, "agent is not online: "+msg.To).
			WithAgent(msg.To).WithRetryable(true)
	}
	return r.enqueue(msg), nil
}

// enqueue appends the message to its priority lane and returns the pending
// completion handle.
func (r *Router) enqueue(msg *types.Message) *Delivery {
	entry := &queuedMessage{
		msg:        msg,
		result:     make(chan *types.Response, 1),
		enqueuedAt: time.Now(),
	}
	r.queues.push(entry)
	r.updateQueueMetrics()
	return &Delivery{MessageID: msg.ID, result: entry.result}
}

// processLoop services at most one message per tick from the first
// non-empty queue, so urgent drains to empty before high is ever touched.
func (r *Router) processLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.ProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if entry := r.queues.pop(); entry != nil {
				r.process(entry)
				r.updateQueueMetrics()
			}
		case <-r.done:
			return
		}
	}
}

func (r *Router) process(entry *queuedMessage) {
	now := time.Now()
	if entry.msg.Expired(now) {
		r.fail(entry, types.NewError(types.ErrDeliveryFailed, "message ttl expired"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.DeliveryTimeout)
	resp, err := r.deliver(ctx, entry.msg)
	cancel()

	if err != nil {
		entry.retries++
		if entry.retries <= r.config.MaxRetries {
			r.logger.Debug("delivery failed, requeueing",
				zap.String("message", entry.msg.ID),
				zap.Int("retry", entry.retries),
				zap.Error(err))
			r.queues.push(entry)
			return
		}
		r.fail(entry, types.NewError(types.ErrDeliveryFailed,
			"delivery failed after retries").WithCause(err).WithAgent(entry.msg.To))
		return
	}

	if resp == nil {
		resp = types.OK(nil).WithAgent(entry.msg.To)
	}
	latency := time.Since(entry.enqueuedAt)
	entry.resolve(resp.WithProcessingTime(latency))
	r.processed.Add(1)
	if r.collector != nil {
		r.collector.ObserveDeliveryLatency(latency)
	}
	r.publish(&bus.MessageSent{
		MessageID: entry.msg.ID,
		From:      entry.msg.From,
		To:        entry.msg.To,
		MsgType:   entry.msg.Type,
		At:        time.Now(),
	})
}

func (r *Router) fail(entry *queuedMessage, err *types.Error) {
	r.logger.Warn("message delivery failed terminally",
		zap.String("message", entry.msg.ID),
		zap.String("to", entry.msg.To),
		zap.Error(err))
	entry.resolve(types.Fail(err))
	r.failed.Add(1)
	if r.collector != nil {
		r.collector.MessageFailed(string(err.Code))
	}
	r.publish(&bus.MessageFailed{
		MessageID: entry.msg.ID,
		To:        entry.msg.To,
		Reason:    err.Error(),
		At:        time.Now(),
	})
}

// deliver hands the message to the transport, wrapped in the target agent's
// circuit breaker when breakers are enabled.
func (r *Router) deliver(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if r.config.BreakerThreshold == 0 {
		return r.transport.Deliver(ctx, msg)
	}
	return r.breakerFor(msg.To).Execute(func() (*types.Response, error) {
		return r.transport.Deliver(ctx, msg)
	})
}

func (r *Router) breakerFor(agentID string) *gobreaker.CircuitBreaker[*types.Response] {
	r.breakerMu.Lock()
	defer r.breakerMu.Unlock()
	if cb, ok := r.breakers[agentID]; ok {
		return cb
	}
	threshold := r.config.BreakerThreshold
	cb := gobreaker.NewCircuitBreaker[*types.Response](gobreaker.Settings{
		Name:    "delivery:" + agentID,
		Timeout: r.config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("delivery breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	r.breakers[agentID] = cb
	return cb
}

func (r *Router) refreshLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RefreshRoutingTable()
		case <-r.done:
			return
		}
	}
}

// RefreshRoutingTable rebuilds the routing table from the registry topology.
func (r *Router) RefreshRoutingTable() {
	topo := r.directory.Topology()
	r.table.replace(topo)
	r.logger.Debug("routing table refreshed",
		zap.Int("capabilities", len(topo.MessageRoutes)),
		zap.Int("agents", len(topo.Agents)))
}

// Stats summarizes the router's current state; it backs broadcast health
// checks.
type Stats struct {
	Uptime        time.Duration          `json:"uptime"`
	Processed     int64                  `json:"processed"`
	Failed        int64                  `json:"failed"`
	QueueDepths   map[types.Priority]int `json:"queue_depths"`
	RoutedCapSize int                    `json:"routing_table_size"`
}

// Stats returns a snapshot of router health and counters.
func (r *Router) Stats() Stats {
	return Stats{
		Uptime:        time.Since(r.startedAt),
		Processed:     r.processed.Load(),
		Failed:        r.failed.Load(),
		QueueDepths:   r.queues.depths(),
		RoutedCapSize: r.table.size(),
	}
}

func (r *Router) updateQueueMetrics() {
	if r.collector == nil {
		return
	}
	for p, depth := range r.queues.depths() {
		r.collector.SetQueueDepth(string(p), depth)
	}
}

func (r *Router) publish(event bus.Event) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}

func filterProfiles(profiles []*types.AgentProfile, query *types.QueryPayload) []*types.AgentProfile {
	out := make([]*types.AgentProfile, 0, len(profiles))
	for _, p := range profiles {
		if query.AgentType != "" && p.Type != query.AgentType {
			continue
		}
		if query.Capability != "" && !p.HasCapability(query.Capability) {
			continue
		}
		if len(query.Statuses) > 0 && !containsStatus(query.Statuses, p.Status) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsStatus(statuses []types.AgentStatus, s types.AgentStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
