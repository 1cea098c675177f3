// Command agentnet runs a single-process coordination engine with a pair of
// demo agents, serving Prometheus metrics until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentnet"
	"github.com/BaSui01/agentnet/config"
	"github.com/BaSui01/agentnet/coordinator"
)

func main() {
	configPath := flag.String("config", "agentnet.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("agentnet exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sys, err := agentnet.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sys.Start(ctx); err != nil {
		return err
	}
	defer sys.Stop()

	if err := registerDemoAgents(sys); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(sys.MetricsRegistry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	return nil
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// registerDemoAgents wires two minimal executors so a fresh deployment has
// something to route workflows to.
func registerDemoAgents(sys *agentnet.System) error {
	support := &replyExecutor{
		capabilities: []string{"technical-support"},
		reply:        "I can help with that. Restart the service and check the logs.",
	}
	analyst := &replyExecutor{
		capabilities: []string{"ethical-analysis"},
		reply:        "Deploying without consent raises fairness and privacy concerns; obtain consent first.",
	}
	if err := sys.RegisterExecutor("technical-support", "support", support); err != nil {
		return err
	}
	return sys.RegisterExecutor("ethics-analyst", "analyst", analyst)
}

// replyExecutor answers every workflow step with a canned response.
type replyExecutor struct {
	capabilities []string
	reply        string
}

func (e *replyExecutor) Capabilities() []string { return e.capabilities }

func (e *replyExecutor) Execute(_ context.Context, _ *coordinator.State) (*coordinator.NodeResult, error) {
	return &coordinator.NodeResult{Response: e.reply}, nil
}
