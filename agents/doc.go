// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Package agents provides pluggable agent implementations of the uniform
processing contract.

The engine never depends on a concrete agent type; these implementations
exist so examples and integration tests can exercise the broker and
orchestrator end to end, and as templates for real agents. Their business
logic is deliberately shallow — a production plan generator or risk scorer
would live behind the same interface.

Func adapts a plain function to the contract, the agent-side counterpart of
a workflow step function.
*/
package agents
