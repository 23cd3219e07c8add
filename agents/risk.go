package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// RiskAgent scores the risk of a plan produced earlier in a workflow.
type RiskAgent struct {
	id     string
	logger *zap.Logger
}

// NewRiskAgent creates a risk agent registered under the "risk_agent" ID.
func NewRiskAgent(logger *zap.Logger) *RiskAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskAgent{id: "risk_agent", logger: logger.With(zap.String("agent", "risk_agent"))}
}

// ID implements types.Agent.
func (a *RiskAgent) ID() string { return a.id }

// Process implements types.Agent.
func (a *RiskAgent) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// More phases, more coordination risk. Without a plan the score maxes
	// out: scoring nothing is the riskiest plan of all.
	score := 100
	var factors []string
	if plan := priorResult(msg, "generate_plan"); plan != nil {
		phases, _ := plan["phases"].([]string)
		score = 20 + 10*len(phases)
		if score > 100 {
			score = 100
		}
		factors = append(factors, "phase_count")
	} else {
		factors = append(factors, "no_plan_available")
	}

	a.logger.Debug("risk scored", zap.Int("score", score))
	return types.NewSuccessResponse(a.id, map[string]any{
		"score":   score,
		"factors": factors,
	}), nil
}

// priorResult digs a named prior step's result out of the accumulated
// results the default input mapping provides.
func priorResult(msg *types.Message, step string) map[string]any {
	results, ok := msg.Get("results").(map[string]any)
	if !ok {
		return nil
	}
	prior, _ := results[step].(map[string]any)
	return prior
}
