// Package metrics provides internal metrics collection for the dispatch
// engine. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records broker and orchestrator metrics. All record methods are
// nil-safe so components can call them unconditionally; a nil *Collector is a
// no-op sink.
type Collector struct {
	// Broker metrics
	brokerPublishedTotal   *prometheus.CounterVec
	brokerDeliveredTotal   *prometheus.CounterVec
	brokerDroppedTotal     *prometheus.CounterVec
	brokerSubscriberPanics *prometheus.CounterVec
	brokerWorkerRestarts   prometheus.Counter
	brokerQueueDepth       prometheus.Gauge

	// Workflow metrics
	workflowRunsTotal    *prometheus.CounterVec
	workflowRunDuration  *prometheus.HistogramVec
	workflowStepDuration *prometheus.HistogramVec

	// Agent metrics
	agentRequestsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on reg. Passing nil reg
// uses the default Prometheus registerer. Use a fresh registry per collector
// when constructing more than one in a process (e.g. in tests) to avoid
// duplicate-registration panics.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.brokerPublishedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_published_total",
			Help:      "Total number of messages accepted by the broker",
		},
		[]string{"topic"},
	)

	c.brokerDeliveredTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_delivered_total",
			Help:      "Total number of subscriber deliveries",
		},
		[]string{"topic"},
	)

	c.brokerDroppedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_dropped_total",
			Help:      "Total number of publishes rejected by the broker",
		},
		[]string{"topic", "reason"},
	)

	c.brokerSubscriberPanics = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_subscriber_panics_total",
			Help:      "Total number of recovered subscriber panics",
		},
		[]string{"topic"},
	)

	c.brokerWorkerRestarts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_worker_restarts_total",
			Help:      "Total number of delivery worker restarts after a crash",
		},
	)

	c.brokerQueueDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_queue_depth",
			Help:      "Current number of messages waiting in the broker queue",
		},
	)

	c.workflowRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs by outcome",
		},
		[]string{"workflow", "outcome"},
	)

	c.workflowRunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"workflow", "outcome"},
	)

	c.workflowStepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Workflow step duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"workflow", "step"},
	)

	c.agentRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_requests_total",
			Help:      "Total number of direct agent dispatches by status",
		},
		[]string{"agent", "status"},
	)

	return c
}

// RecordPublish records a message accepted onto the broker queue.
func (c *Collector) RecordPublish(topic string) {
	if c == nil {
		return
	}
	c.brokerPublishedTotal.WithLabelValues(topic).Inc()
}

// RecordDelivery records one subscriber delivery.
func (c *Collector) RecordDelivery(topic string) {
	if c == nil {
		return
	}
	c.brokerDeliveredTotal.WithLabelValues(topic).Inc()
}

// RecordDrop records a rejected publish with the rejection reason.
func (c *Collector) RecordDrop(topic, reason string) {
	if c == nil {
		return
	}
	c.brokerDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// RecordSubscriberPanic records a recovered subscriber panic.
func (c *Collector) RecordSubscriberPanic(topic string) {
	if c == nil {
		return
	}
	c.brokerSubscriberPanics.WithLabelValues(topic).Inc()
}

// RecordWorkerRestart records a delivery worker restart after a crash.
func (c *Collector) RecordWorkerRestart() {
	if c == nil {
		return
	}
	c.brokerWorkerRestarts.Inc()
}

// SetQueueDepth updates the broker queue depth gauge.
func (c *Collector) SetQueueDepth(depth int) {
	if c == nil {
		return
	}
	c.brokerQueueDepth.Set(float64(depth))
}

// RecordWorkflowRun records a finished workflow run and its duration.
func (c *Collector) RecordWorkflowRun(workflow, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.workflowRunsTotal.WithLabelValues(workflow, outcome).Inc()
	c.workflowRunDuration.WithLabelValues(workflow, outcome).Observe(duration.Seconds())
}

// RecordWorkflowStep records a completed workflow step and its duration.
func (c *Collector) RecordWorkflowStep(workflow, step string, duration time.Duration) {
	if c == nil {
		return
	}
	c.workflowStepDuration.WithLabelValues(workflow, step).Observe(duration.Seconds())
}

// RecordAgentRequest records a direct (non-workflow) agent dispatch.
func (c *Collector) RecordAgentRequest(agent, status string) {
	if c == nil {
		return
	}
	c.agentRequestsTotal.WithLabelValues(agent, status).Inc()
}
