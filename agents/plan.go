package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// PlanAgent turns a project objective into an ordered phase plan.
type PlanAgent struct {
	id     string
	logger *zap.Logger
}

// NewPlanAgent creates a plan agent registered under the "plan_agent" ID.
func NewPlanAgent(logger *zap.Logger) *PlanAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanAgent{id: "plan_agent", logger: logger.With(zap.String("agent", "plan_agent"))}
}

// ID implements types.Agent.
func (a *PlanAgent) ID() string { return a.id }

// Process implements types.Agent.
func (a *PlanAgent) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objective := msg.GetString("objective")
	if objective == "" {
		objective = "unspecified objective"
	}

	phases := []string{
		fmt.Sprintf("discovery: clarify scope of %q", objective),
		"design: agree milestones and owners",
		"delivery: execute milestones",
		"review: verify outcomes against the objective",
	}
	a.logger.Debug("plan generated", zap.String("objective", objective), zap.Int("phases", len(phases)))

	return types.NewSuccessResponse(a.id, map[string]any{
		"objective": objective,
		"phases":    phases,
	}), nil
}
