// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Command dispatchd runs the dispatch engine as a long-lived process.

# Usage

	dispatchd serve                         # start with defaults + env
	dispatchd serve --config dispatch.yaml  # start from a config file
	dispatchd version                       # print build information
	dispatchd health                        # probe a running instance

# Endpoints

	GET /health    liveness probe
	GET /metrics   Prometheus exposition

Workflows come from the configuration file's workflow table. Agents are
compiled in; the serve command registers the bundled sample agents so
configured workflows have something to dispatch to.
*/
package main
