package config

import "time"

// Default configuration values.
const (
	DefaultQueueCapacity   = 256
	DefaultWorkflowTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Defaults returns the built-in configuration. It runs without a config
// file: an empty broker and orchestrator with no workflows registered.
func Defaults() *Config {
	return &Config{
		Broker: BrokerConfig{
			QueueCapacity: DefaultQueueCapacity,
		},
		Orchestrator: OrchestratorConfig{
			DefaultTimeout: DefaultWorkflowTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
