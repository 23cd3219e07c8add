// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Package config loads the dispatch engine configuration.

# Overview

Configuration comes from three layers, later layers overriding earlier
ones: built-in defaults, an optional YAML file, and environment variables
with a configurable prefix (DISPATCH by default).

	cfg, err := config.NewLoader().
	    WithConfigPath("dispatch.yaml").
	    WithEnvPrefix("DISPATCH").
	    Load()

The configuration surface covers the broker queue capacity, the default
workflow timeout, logging, and the static workflow-definition table (step
names, ordering and agent bindings). Workflow definitions are fixed for the
life of the process; there is no hot reload.
*/
package config
