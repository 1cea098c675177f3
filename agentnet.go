// Package agentnet provides a top-level convenience entry point wiring the
// three cores of the coordination engine together: the capability registry,
// the message router, and the workflow coordinator.
//
// Usage:
//
//	sys, err := agentnet.New(config.Default(), logger)
//	if err != nil { ... }
//	if err := sys.Start(ctx); err != nil { ... }
//	defer sys.Stop()
//
//	sys.RegisterExecutor("technical-support", "support", myExecutor)
package agentnet

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/agentnet/bus"
	"github.com/BaSui01/agentnet/config"
	"github.com/BaSui01/agentnet/coordinator"
	"github.com/BaSui01/agentnet/internal/metrics"
	"github.com/BaSui01/agentnet/registry"
	"github.com/BaSui01/agentnet/router"
	"github.com/BaSui01/agentnet/types"
)

// System is a fully wired coordination engine.
type System struct {
	Registry    *registry.Registry
	Router      *router.Router
	Coordinator *coordinator.Coordinator
	Bus         *bus.AsyncBus

	// Transport is the default in-process loopback; agents attach
	// handlers here to receive delivered messages.
	Transport *router.Loopback

	collector *metrics.Collector
	store     *registry.SnapshotStore
	logger    *zap.Logger
}

// New wires a System from configuration. When cfg.Redis.Addr is set the
// registry persists snapshots to Redis; otherwise it runs purely in memory.
func New(cfg *config.Config, logger *zap.Logger) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	eventBus := bus.New(logger)
	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	registryOpts := []registry.Option{registry.WithCollector(collector)}
	var store *registry.SnapshotStore
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := registry.NewSnapshotStore(ctx, cfg.Redis, logger)
		if err != nil {
			eventBus.Stop()
			return nil, err
		}
		store = s
		registryOpts = append(registryOpts, registry.WithSnapshotStore(store))
	}

	reg := registry.New(cfg.Registry, eventBus, logger, registryOpts...)
	transport := router.NewLoopback()
	rtr := router.New(cfg.Router, reg, eventBus, logger,
		router.WithTransport(transport),
		router.WithCollector(collector))
	coord := coordinator.New(cfg.Coordinator, reg, rtr, eventBus, logger,
		coordinator.WithCollector(collector))
	rtr.SetWorkflowHandler(coord)

	return &System{
		Registry:    reg,
		Router:      rtr,
		Coordinator: coord,
		Bus:         eventBus,
		Transport:   transport,
		collector:   collector,
		store:       store,
		logger:      logger,
	}, nil
}

// Start launches the registry cleanup sweep and the router's background
// loops.
func (s *System) Start(ctx context.Context) error {
	if err := s.Registry.Start(ctx); err != nil {
		return err
	}
	return s.Router.Start(ctx)
}

// Stop shuts everything down in dependency order.
func (s *System) Stop() {
	s.Router.Stop()
	s.Registry.Stop()
	s.Bus.Stop()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close snapshot store", zap.Error(err))
		}
	}
}

// MetricsRegistry exposes the Prometheus registry backing the engine's
// metrics for serving /metrics.
func (s *System) MetricsRegistry() *prometheus.Registry {
	return s.collector.Registry()
}

// RegisterExecutor registers an agent end to end: a registry profile built
// from the executor's advertised capabilities, and a workflow node mapped to
// the agent ID.
func (s *System) RegisterExecutor(agentID, agentType string, executor coordinator.Executor) error {
	names := executor.Capabilities()
	capabilities := make([]types.AgentCapability, 0, len(names))
	for _, name := range names {
		capabilities = append(capabilities, types.AgentCapability{
			ID:          agentID + ":" + name,
			Name:        name,
			Category:    "general",
			Cost:        50,
			Reliability: 0.8,
			Version:     "1.0.0",
		})
	}
	profile := &types.AgentProfile{
		ID:           agentID,
		Type:         agentType,
		Status:       types.StatusOnline,
		Capabilities: capabilities,
	}
	if err := s.Registry.Register(profile); err != nil {
		return err
	}
	s.Coordinator.RegisterNode(coordinator.NewAgentNode(agentID, executor))
	return nil
}
