package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// GovernanceAgent gates work on required fields and approval policy. It is
// the one sample agent that exercises the pending status: work that needs a
// human sign-off is accepted but not finished.
type GovernanceAgent struct {
	id       string
	required []string
	logger   *zap.Logger
}

// NewGovernanceAgent creates a governance agent registered under the
// "governance_agent" ID, requiring the given message fields.
func NewGovernanceAgent(logger *zap.Logger, required ...string) *GovernanceAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GovernanceAgent{
		id:       "governance_agent",
		required: required,
		logger:   logger.With(zap.String("agent", "governance_agent")),
	}
}

// ID implements types.Agent.
func (a *GovernanceAgent) ID() string { return a.id }

// Process implements types.Agent.
func (a *GovernanceAgent) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, field := range a.required {
		if msg.Get(field) == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		a.logger.Debug("governance check failed", zap.Strings("missing", missing))
		resp := types.NewErrorResponse(a.id, "missing required fields")
		resp.Data = map[string]any{"missing": missing}
		return resp, nil
	}

	if approval, _ := msg.Get("requires_approval").(bool); approval {
		return types.NewPendingResponse(a.id, map[string]any{
			"awaiting": "human approval",
		}), nil
	}

	return types.NewSuccessResponse(a.id, map[string]any{"approved": true}), nil
}
