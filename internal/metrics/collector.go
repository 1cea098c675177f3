// Package metrics provides internal metrics collection for the coordination
// engine. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the engine's Prometheus metrics. Each Collector carries its
// own registry so tests can create collectors freely without duplicate
// registration panics.
type Collector struct {
	registry *prometheus.Registry

	messagesRouted   *prometheus.CounterVec
	messagesFailed   *prometheus.CounterVec
	broadcastsTotal  prometheus.Counter
	queueDepth       *prometheus.GaugeVec
	registeredAgents prometheus.Gauge
	deliveryLatency  prometheus.Histogram

	workflowRuns     *prometheus.CounterVec
	workflowDuration prometheus.Histogram
}

// NewCollector creates a collector with all metrics registered under the
// given namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		messagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Total messages accepted by the router, by message type.",
		}, []string{"type"}),
		messagesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total messages that failed routing or delivery, by reason.",
		}, []string{"reason"}),
		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total broadcast fan-outs performed.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current depth of each priority queue.",
		}, []string{"priority"}),
		registeredAgents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_agents",
			Help:      "Number of agents currently registered.",
		}),
		deliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_latency_seconds",
			Help:      "Time from enqueue to delivery resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
		workflowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total workflow runs, by terminal status.",
		}, []string{"status"}),
		workflowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Wall-clock duration of workflow runs.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// Registry exposes the underlying Prometheus registry for serving /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// MessageRouted records an accepted message.
func (c *Collector) MessageRouted(msgType string) {
	c.messagesRouted.WithLabelValues(msgType).Inc()
}

// MessageFailed records a terminal routing or delivery failure.
func (c *Collector) MessageFailed(reason string) {
	c.messagesFailed.WithLabelValues(reason).Inc()
}

// BroadcastSent records one broadcast fan-out.
func (c *Collector) BroadcastSent() {
	c.broadcastsTotal.Inc()
}

// SetQueueDepth records the current depth of one priority queue.
func (c *Collector) SetQueueDepth(priority string, depth int) {
	c.queueDepth.WithLabelValues(priority).Set(float64(depth))
}

// SetRegisteredAgents records the current registry size.
func (c *Collector) SetRegisteredAgents(n int) {
	c.registeredAgents.Set(float64(n))
}

// ObserveDeliveryLatency records the enqueue-to-resolution latency of one
// queued message.
func (c *Collector) ObserveDeliveryLatency(d time.Duration) {
	c.deliveryLatency.Observe(d.Seconds())
}

// WorkflowFinished records one terminated workflow run.
func (c *Collector) WorkflowFinished(status string, d time.Duration) {
	c.workflowRuns.WithLabelValues(status).Inc()
	c.workflowDuration.Observe(d.Seconds())
}
