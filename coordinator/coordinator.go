package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentnet/bus"
	"github.com/BaSui01/agentnet/internal/metrics"
	"github.com/BaSui01/agentnet/router"
	"github.com/BaSui01/agentnet/types"
)

// AgentSource lists the agents available for workflow execution.
// *registry.Registry satisfies it.
type AgentSource interface {
	Discover() []*types.AgentProfile
}

// MessageRelay carries handoff delegations into the message network.
// *router.Router satisfies it.
type MessageRelay interface {
	RouteMessage(ctx context.Context, msg *types.Message) (*router.Delivery, error)
}

// Config holds configuration for the workflow coordinator.
type Config struct {
	// MaxIterations bounds the state-machine loop. Exceeding it is a
	// fatal error for the run.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// Timeout bounds the run's wall clock. Whichever of the two bounds
	// fires first wins.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Supervisor configures the decision step.
	Supervisor SupervisorConfig `yaml:"supervisor" json:"supervisor"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 10,
		Timeout:       60 * time.Second,
		Supervisor:    DefaultSupervisorConfig(),
	}
}

// Result is the outcome of one workflow run.
type Result struct {
	SessionID string     `json:"session_id"`
	Status    Status     `json:"status"`
	Response  string     `json:"response,omitempty"`
	Decision  *Decision  `json:"decision,omitempty"`
	Metrics   RunMetrics `json:"metrics"`
}

// Coordinator drives the workflow state machine: supervisor decision, node
// execution, handoff relay, and the routing edge, bounded by iterations and
// wall-clock timeout.
type Coordinator struct {
	config     Config
	supervisor *Supervisor
	source     AgentSource
	relay      MessageRelay
	bus        bus.Bus
	collector  *metrics.Collector
	tracer     trace.Tracer
	logger     *zap.Logger

	mu    sync.RWMutex
	nodes map[string]Node
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithScorer replaces the default keyword scorer used by the supervisor.
func WithScorer(s Scorer) Option {
	return func(c *Coordinator) {
		c.supervisor = NewSupervisor(c.config.Supervisor, s, c.logger)
	}
}

// WithCollector attaches a metrics collector.
func WithCollector(col *metrics.Collector) Option {
	return func(c *Coordinator) { c.collector = col }
}

// New creates a workflow coordinator. A nil bus disables event emission; a
// nil logger falls back to a no-op logger.
func New(config Config, source AgentSource, relay MessageRelay, eventBus bus.Bus, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		config: config,
		source: source,
		relay:  relay,
		bus:    eventBus,
		tracer: otel.Tracer("github.com/BaSui01/agentnet/coordinator"),
		logger: logger.With(zap.String("component", "workflow_coordinator")),
		nodes:  make(map[string]Node),
	}
	c.supervisor = NewSupervisor(config.Supervisor, nil, logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterNode maps an agent ID to its workflow node, replacing any
// previous mapping.
func (c *Coordinator) RegisterNode(node Node) {
	c.mu.Lock()
	c.nodes[node.AgentID()] = node
	c.mu.Unlock()
}

// UnregisterNode removes an agent's node mapping.
func (c *Coordinator) UnregisterNode(agentID string) {
	c.mu.Lock()
	delete(c.nodes, agentID)
	c.mu.Unlock()
}

func (c *Coordinator) node(agentID string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[agentID]
	return n, ok
}

// StartWorkflow implements router.WorkflowHandler: it validates the
// workflow_start message, acknowledges receipt, and runs the workflow on a
// detached context so the run outlives the routing call. Results surface as
// workflow events and run metrics.
func (c *Coordinator) StartWorkflow(ctx context.Context, msg *types.Message) (*types.Response, error) {
	payload, err := types.DecodeWorkflow(msg)
	if err != nil {
		return nil, err
	}
	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	go func() {
		runMsg := *msg
		runMsg.CorrelationID = sessionID
		if _, err := c.Run(context.Background(), &runMsg); err != nil {
			c.logger.Warn("workflow run failed",
				zap.String("session", sessionID), zap.Error(err))
		}
	}()

	return types.OK(map[string]string{
		"session_id": sessionID,
		"status":     string(StatusRunning),
	}), nil
}

// Run executes one workflow to termination. Failures inside a step are
// caught at this boundary and become a terminal error status with a
// user-facing message; the returned error carries the structured code.
func (c *Coordinator) Run(ctx context.Context, msg *types.Message) (*Result, error) {
	payload, err := types.DecodeWorkflow(msg)
	if err != nil {
		return nil, err
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		if msg.CorrelationID != "" {
			sessionID = msg.CorrelationID
		} else {
			sessionID = uuid.NewString()
		}
	}
	maxIterations := c.config.MaxIterations
	if payload.MaxIterations > 0 {
		maxIterations = payload.MaxIterations
	}

	runCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	runCtx, span := c.tracer.Start(runCtx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow.session_id", sessionID)))
	defer span.End()

	available := make([]string, 0)
	agents := make([]*types.AgentProfile, 0)
	for _, p := range c.source.Discover() {
		if p.Online() {
			agents = append(agents, p)
			available = append(available, p.ID)
		}
	}

	state := &State{
		SessionID:       sessionID,
		Content:         payload.Content,
		CurrentAgent:    SupervisorAgent,
		AvailableAgents: available,
		Status:          StatusRunning,
		StartedAt:       time.Now(),
	}
	result := &Result{SessionID: sessionID}
	visited := []string{SupervisorAgent}
	handoffs := make([]Handoff, 0)

	c.publish(&bus.WorkflowStarted{SessionID: sessionID, At: time.Now()})
	c.logger.Info("workflow started",
		zap.String("session", sessionID),
		zap.Int("available_agents", len(available)))

	var runErr *types.Error
	for state.Status == StatusRunning {
		if state.Steps >= maxIterations {
			runErr = types.NewError(types.ErrMaxIterations, "workflow exceeded max iterations")
			break
		}
		if runCtx.Err() != nil {
			runErr = types.NewError(types.ErrWorkflowTimeout, "workflow timed out").WithCause(runCtx.Err())
			break
		}
		state.Steps++

		if state.CurrentAgent == SupervisorAgent {
			decision := c.supervisor.Decide(runCtx, state.LatestContent(), agents)
			result.Decision = decision
			if decision.SelectedAgent == "" {
				runErr = types.NewError(types.ErrAgentNotFound, "no agent available for workflow")
				break
			}
			state.NextAgent = decision.SelectedAgent
		} else {
			stepErr := c.executeStep(runCtx, state, result, &handoffs)
			if stepErr != nil {
				runErr = stepErr
				break
			}
		}
		if state.Status != StatusRunning {
			break
		}

		// Routing edge: transition only when the next agent is set, is a
		// different agent, is available, and maps to a known node;
		// anything else ends the run.
		next := state.NextAgent
		state.NextAgent = ""
		if next == "" || next == state.CurrentAgent || !state.HasAgent(next) {
			state.Status = StatusCompleted
			break
		}
		if _, ok := c.node(next); !ok {
			c.logger.Warn("no node registered for selected agent, ending workflow",
				zap.String("session", sessionID), zap.String("agent", next))
			state.Status = StatusCompleted
			break
		}
		state.CurrentAgent = next
		visited = append(visited, next)
	}

	duration := time.Since(state.StartedAt)
	if runErr != nil {
		state.Status = StatusError
		state.AddExchange(SupervisorAgent, "workflow failed: "+runErr.Message)
	}
	result.Status = state.Status
	result.Metrics = extractMetrics(visited, handoffs, state, duration)

	if runErr != nil {
		span.RecordError(runErr)
		c.publish(&bus.WorkflowFailed{SessionID: sessionID, Reason: runErr.Message, At: time.Now()})
		c.logger.Warn("workflow failed",
			zap.String("session", sessionID),
			zap.Int("steps", state.Steps),
			zap.Error(runErr))
	} else {
		c.publish(&bus.WorkflowCompleted{
			SessionID: sessionID,
			Steps:     state.Steps,
			Duration:  duration,
			At:        time.Now(),
		})
		c.logger.Info("workflow completed",
			zap.String("session", sessionID),
			zap.Int("steps", state.Steps),
			zap.Duration("duration", duration))
	}
	if c.collector != nil {
		c.collector.WorkflowFinished(string(result.Status), duration)
	}

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// executeStep runs the current node with a step span. A terminal response
// completes the run; a handoff decision is relayed as a task_delegate
// message through the router and sets the next agent.
func (c *Coordinator) executeStep(ctx context.Context, state *State, result *Result, handoffs *[]Handoff) *types.Error {
	node, ok := c.node(state.CurrentAgent)
	if !ok {
		return types.NewError(types.ErrNoNode, "no node registered for agent: "+state.CurrentAgent)
	}

	stepCtx, span := c.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("workflow.session_id", state.SessionID),
			attribute.String("workflow.agent", state.CurrentAgent)))
	nodeResult, err := node.Execute(stepCtx, state)
	span.End()
	if err != nil {
		return types.NewError(types.ErrInternal, "node execution failed").
			WithCause(err).WithAgent(state.CurrentAgent)
	}
	if nodeResult == nil || (nodeResult.Response == "" && nodeResult.Handoff == nil) {
		return types.NewError(types.ErrInternal,
			"node produced neither a response nor a handoff").WithAgent(state.CurrentAgent)
	}

	if nodeResult.Response != "" {
		state.AddExchange(state.CurrentAgent, nodeResult.Response)
		state.Status = StatusCompleted
		result.Response = nodeResult.Response
		return nil
	}

	handoff := nodeResult.Handoff
	if err := c.relayHandoff(ctx, state, handoff); err != nil {
		c.logger.Warn("failed to relay handoff",
			zap.String("session", state.SessionID),
			zap.String("target", handoff.TargetAgent),
			zap.Error(err))
	}
	*handoffs = append(*handoffs, Handoff{
		From:   state.CurrentAgent,
		To:     handoff.TargetAgent,
		Reason: handoff.Reason,
		At:     time.Now(),
	})
	state.NextAgent = handoff.TargetAgent
	return nil
}

// relayHandoff publishes the handoff as a task_delegate message so the
// message network sees the full delegation chain.
func (c *Coordinator) relayHandoff(ctx context.Context, state *State, handoff *HandoffDecision) error {
	if c.relay == nil {
		return nil
	}
	msg, err := types.NewMessage(state.CurrentAgent, handoff.TargetAgent, types.MessageTaskDelegate,
		&types.DelegationPayload{
			FromAgent:   state.CurrentAgent,
			TargetAgent: handoff.TargetAgent,
			Reason:      handoff.Reason,
			Confidence:  handoff.Confidence,
			Content:     state.LatestContent(),
		})
	if err != nil {
		return err
	}
	msg.CorrelationID = state.SessionID
	msg.Priority = types.PriorityHigh
	_, err = c.relay.RouteMessage(ctx, msg)
	return err
}

func (c *Coordinator) publish(event bus.Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}
