package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hiveworks/dispatch/types"
)

// Loader loads configuration in three layers: defaults, then an optional
// YAML file, then environment-variable overrides.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the DISPATCH env prefix and no config
// file.
func NewLoader() *Loader {
	return &Loader{envPrefix: "DISPATCH"}
}

// WithConfigPath sets the YAML file to load. A missing file is an error;
// pass "" to skip the file layer.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment-variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		raw, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, types.NewErrorf(types.ErrInvalidConfig,
				"read config file %q", l.configPath).WithCause(err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, types.NewErrorf(types.ErrInvalidConfig,
				"parse config file %q", l.configPath).WithCause(err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides scalar settings from the environment. The workflow
// table is file-only; it has no sensible env encoding.
func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookup("BROKER_QUEUE_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.NewErrorf(types.ErrInvalidConfig,
				"%s_BROKER_QUEUE_CAPACITY: %q is not an integer", l.envPrefix, v)
		}
		cfg.Broker.QueueCapacity = n
	}
	if v, ok := l.lookup("ORCHESTRATOR_DEFAULT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.NewErrorf(types.ErrInvalidConfig,
				"%s_ORCHESTRATOR_DEFAULT_TIMEOUT: %q is not a duration", l.envPrefix, v)
		}
		cfg.Orchestrator.DefaultTimeout = d
	}
	if v, ok := l.lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.lookup("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	return nil
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(fmt.Sprintf("%s_%s", l.envPrefix, key))
}
