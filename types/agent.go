package types

import "context"

// Agent is the capability contract every unit of work implements. The engine
// is polymorphic over this interface and never depends on a concrete agent
// type; plan generators, risk scorers, report builders and governance gates
// are all just Agents to the orchestrator.
//
// Process is a synchronous call. Implementations that do long-running work
// should honor ctx cancellation so deadline-bound workflow runs can unwind
// promptly; the engine does not mandate how an agent achieves that.
type Agent interface {
	// ID returns the agent's unique identifier. Messages whose type equals
	// an agent ID are dispatched directly to that agent.
	ID() string
	// Process handles one message and returns the uniform response envelope.
	Process(ctx context.Context, msg *Message) (*Response, error)
}
