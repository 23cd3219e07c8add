package agents

import (
	"context"

	"github.com/hiveworks/dispatch/types"
)

// Func adapts a plain function to the types.Agent contract.
type Func struct {
	id string
	fn func(ctx context.Context, msg *types.Message) (*types.Response, error)
}

// NewFunc creates a function-backed agent.
func NewFunc(id string, fn func(ctx context.Context, msg *types.Message) (*types.Response, error)) *Func {
	return &Func{id: id, fn: fn}
}

// ID implements types.Agent.
func (a *Func) ID() string { return a.id }

// Process implements types.Agent.
func (a *Func) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	return a.fn(ctx, msg)
}
