// Package dispatch provides a top-level convenience entry point that wires
// the broker, orchestrator, and configuration together.
//
// Usage:
//
//	import "github.com/hiveworks/dispatch"
//
//	eng, err := dispatch.New(dispatch.WithConfigFile("dispatch.yaml"))
//	eng, err := dispatch.New(dispatch.WithConfig(cfg), dispatch.WithLogger(logger))
//
// An Engine owns one broker and one orchestrator. Workflows declared in the
// configuration are registered at construction time; agents are registered
// by the caller before processing starts.
package dispatch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hiveworks/dispatch/broker"
	"github.com/hiveworks/dispatch/config"
	"github.com/hiveworks/dispatch/internal/metrics"
	"github.com/hiveworks/dispatch/orchestrator"
	"github.com/hiveworks/dispatch/types"
)

// Engine bundles a broker and an orchestrator behind one lifecycle.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	broker *broker.Broker
	orch   *orchestrator.Orchestrator
}

// Option configures the engine created by [New].
type Option func(*engineOptions)

type engineOptions struct {
	cfg        *config.Config
	configFile string
	logger     *zap.Logger
	registry   prometheus.Registerer
}

// WithConfig uses an already-built configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) { o.cfg = cfg }
}

// WithConfigFile loads configuration from a YAML file, with environment
// overrides applied on top.
func WithConfigFile(path string) Option {
	return func(o *engineOptions) { o.configFile = path }
}

// WithLogger sets a custom zap logger, bypassing the configured log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithMetricsRegistry enables Prometheus metrics on the given registerer.
// Without it the engine records nothing.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(o *engineOptions) { o.registry = reg }
}

// New builds an engine from the given options. Workflows declared in the
// configuration are registered immediately; the broker stays inert until
// [Engine.Start].
func New(opts ...Option) (*Engine, error) {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loader := config.NewLoader()
		if o.configFile != "" {
			loader = loader.WithConfigPath(o.configFile)
		}
		loaded, err := loader.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		built, err := buildLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	var collector *metrics.Collector
	if o.registry != nil {
		collector = metrics.NewCollector("dispatch", o.registry, logger)
	}

	b := broker.New(
		broker.WithCapacity(cfg.Broker.QueueCapacity),
		broker.WithLogger(logger),
		broker.WithMetrics(collector),
	)
	orch := orchestrator.New(
		orchestrator.WithBroker(b),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(collector),
	)

	for _, wf := range cfg.Workflows {
		def := orchestrator.WorkflowDef{
			Type:        wf.Type,
			Description: wf.Description,
		}
		for _, step := range wf.Steps {
			def.Steps = append(def.Steps, orchestrator.StepDef{
				Name:    step.Name,
				AgentID: step.Agent,
			})
		}
		if err := orch.RegisterWorkflow(def); err != nil {
			return nil, err
		}
	}

	return &Engine{cfg: cfg, logger: logger, broker: b, orch: orch}, nil
}

// Start brings the broker online. Idempotent.
func (e *Engine) Start() {
	e.broker.Start()
	e.logger.Info("engine started",
		zap.Int("queue_capacity", e.cfg.Broker.QueueCapacity),
		zap.Int("workflows", len(e.cfg.Workflows)))
}

// Stop drains and shuts down the broker. Idempotent.
func (e *Engine) Stop() {
	e.broker.Stop()
	e.logger.Info("engine stopped")
}

// Broker exposes the underlying broker for direct publish/subscribe use.
func (e *Engine) Broker() *broker.Broker { return e.broker }

// Orchestrator exposes the underlying orchestrator.
func (e *Engine) Orchestrator() *orchestrator.Orchestrator { return e.orch }

// RegisterAgent makes an agent addressable by workflows and direct dispatch.
func (e *Engine) RegisterAgent(agent types.Agent) {
	e.orch.RegisterAgent(agent)
}

// RegisterWorkflow adds a workflow definition beyond those declared in
// configuration.
func (e *Engine) RegisterWorkflow(def orchestrator.WorkflowDef) error {
	return e.orch.RegisterWorkflow(def)
}

// Process runs a message synchronously with no deadline.
func (e *Engine) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	return e.orch.Process(ctx, msg)
}

// ProcessAsync runs a message under the given timeout. A zero timeout falls
// back to the configured default.
func (e *Engine) ProcessAsync(ctx context.Context, msg *types.Message, timeout time.Duration) (*types.Response, error) {
	if timeout == 0 {
		timeout = e.cfg.Orchestrator.DefaultTimeout
	}
	return e.orch.ProcessAsync(ctx, msg, timeout)
}

// buildLogger constructs a zap logger from the log configuration section.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInvalidConfig, "invalid log level %q", cfg.Level)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = cfg.Format
	if cfg.Format == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, types.NewErrorf(types.ErrInvalidConfig, "build logger: %v", err)
	}
	return logger, nil
}
