package config

import (
	"time"

	"github.com/hiveworks/dispatch/types"
)

// Config is the complete dispatch engine configuration.
type Config struct {
	// Broker configures the message broker.
	Broker BrokerConfig `yaml:"broker"`
	// Orchestrator configures workflow execution.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	// Log configures logging output.
	Log LogConfig `yaml:"log"`
	// Workflows is the static workflow-definition table.
	Workflows []WorkflowConfig `yaml:"workflows"`
}

// BrokerConfig configures the message broker.
type BrokerConfig struct {
	// QueueCapacity bounds the delivery queue; publishes beyond it fail
	// fast instead of blocking.
	QueueCapacity int `yaml:"queue_capacity"`
}

// OrchestratorConfig configures workflow execution.
type OrchestratorConfig struct {
	// DefaultTimeout is applied by callers that run deadline-bound
	// workflows without a per-call timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: json, console
	Format string `yaml:"format"`
}

// WorkflowConfig is one entry in the workflow-definition table.
type WorkflowConfig struct {
	Type        string       `yaml:"type"`
	Description string       `yaml:"description"`
	Steps       []StepConfig `yaml:"steps"`
}

// StepConfig binds a named step to a registered agent.
type StepConfig struct {
	Name  string `yaml:"name"`
	Agent string `yaml:"agent"`
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Broker.QueueCapacity <= 0 {
		return types.NewErrorf(types.ErrInvalidConfig,
			"broker.queue_capacity must be positive, got %d", c.Broker.QueueCapacity)
	}
	if c.Orchestrator.DefaultTimeout < 0 {
		return types.NewErrorf(types.ErrInvalidConfig,
			"orchestrator.default_timeout must be non-negative, got %s", c.Orchestrator.DefaultTimeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return types.NewErrorf(types.ErrInvalidConfig, "log.level %q is not one of debug/info/warn/error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return types.NewErrorf(types.ErrInvalidConfig, "log.format %q is not one of json/console", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Workflows))
	for _, wf := range c.Workflows {
		if wf.Type == "" {
			return types.NewError(types.ErrInvalidConfig, "workflow with empty type")
		}
		if seen[wf.Type] {
			return types.NewErrorf(types.ErrInvalidConfig, "duplicate workflow type %q", wf.Type)
		}
		seen[wf.Type] = true
		if len(wf.Steps) == 0 {
			return types.NewErrorf(types.ErrInvalidConfig, "workflow %q has no steps", wf.Type)
		}
		for i, step := range wf.Steps {
			if step.Name == "" || step.Agent == "" {
				return types.NewErrorf(types.ErrInvalidConfig,
					"workflow %q: step %d needs both name and agent", wf.Type, i+1)
			}
		}
	}
	return nil
}
