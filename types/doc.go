// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type contracts of the dispatch engine.

# Overview

types is the lowest-level package in the module and depends on no other
dispatch package, so every other package (broker, orchestrator, agents,
config) can import it without circular imports. All cross-package types
live here: the message and response envelopes, the agent capability
interface, and the structured error taxonomy.

# Core types

  - Message         — immutable inbound event envelope {type, data, timestamp}
  - Response        — uniform processing result {agent_id, status, data, error}
  - Status          — success / error / pending / timeout
  - PartialProgress — how far a deadline-bound run got before the deadline
  - Agent           — the capability contract every unit of work implements
  - Error/ErrorCode — structured errors with stable machine-readable codes
*/
package types
