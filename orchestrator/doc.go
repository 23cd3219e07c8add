// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Package orchestrator sequences registered agents into named workflows and
runs them with predictable failure modes.

# Overview

The orchestrator holds a registry of agents keyed by identifier and a
catalogue of workflow definitions: ordered step lists with data-passing
rules between steps. An inbound message whose type names a workflow runs
every step in declared order, feeding each step the original message data
plus the accumulated results of earlier steps; a message whose type names
an agent is forwarded to that agent directly and its response returned
untouched.

# Execution modes

Process runs synchronously on the caller's goroutine with no timeout;
callers accept unbounded blocking in exchange for the simpler contract.

ProcessAsync wraps the same step semantics in a cancellable, deadline-bound
task raced against a timer. When the deadline fires the run is cancelled,
the unwind is awaited (no agent work continues after the response is
returned), and a timeout response is built from the run's ledger: the
completed steps plus a partial-progress summary carrying step names only.
Failed runs never carry partial progress, so callers can tell "ran out of
time" from "something broke" without parsing error strings.

Every run owns its own ledger; concurrent runs of the same workflow type
never share state. Terminal outcomes are published to the broker topics
workflow.completed, workflow.failed and workflow.timed_out so observers can
react without the orchestrator depending on them.
*/
package orchestrator
