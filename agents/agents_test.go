package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiveworks/dispatch/types"
)

func TestPlanAgentProducesPhases(t *testing.T) {
	agent := NewPlanAgent(nil)
	assert.Equal(t, "plan_agent", agent.ID())

	msg := types.NewMessage("generate_plan", map[string]any{"objective": "launch beta"})
	resp, err := agent.Process(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())

	assert.Equal(t, "launch beta", resp.Data["objective"])
	phases, ok := resp.Data["phases"].([]string)
	require.True(t, ok)
	assert.NotEmpty(t, phases)
	assert.Contains(t, phases[0], "launch beta")
}

func TestPlanAgentDefaultsObjective(t *testing.T) {
	agent := NewPlanAgent(nil)
	resp, err := agent.Process(context.Background(), types.NewMessage("generate_plan", nil))
	require.NoError(t, err)
	assert.Equal(t, "unspecified objective", resp.Data["objective"])
}

func TestRiskAgentScoresPlan(t *testing.T) {
	agent := NewRiskAgent(nil)

	msg := types.NewMessage("assess_risks", map[string]any{
		"results": map[string]any{
			"generate_plan": map[string]any{
				"phases": []string{"a", "b", "c"},
			},
		},
	})
	resp, err := agent.Process(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, 50, resp.Data["score"])
	assert.Equal(t, []string{"phase_count"}, resp.Data["factors"])
}

func TestRiskAgentWithoutPlanMaxesOut(t *testing.T) {
	agent := NewRiskAgent(nil)
	resp, err := agent.Process(context.Background(), types.NewMessage("assess_risks", nil))
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Data["score"])
	assert.Equal(t, []string{"no_plan_available"}, resp.Data["factors"])
}

func TestReportAgentSummarizesResults(t *testing.T) {
	agent := NewReportAgent(nil)

	msg := types.NewMessage("generate_report", map[string]any{
		"results": map[string]any{
			"generate_plan": map[string]any{},
			"assess_risks":  map[string]any{},
		},
	})
	resp, err := agent.Process(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "status report covering 2 completed steps", resp.Data["summary"])

	sections, ok := resp.Data["sections"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"assess_risks", "generate_plan"}, sections, "sections are sorted")
}

func TestGovernanceAgentMissingFields(t *testing.T) {
	agent := NewGovernanceAgent(nil, "objective", "owner")

	resp, err := agent.Process(context.Background(), types.NewMessage("review", map[string]any{"objective": "x"}))
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, resp.Status)
	assert.Equal(t, []string{"owner"}, resp.Data["missing"])
}

func TestGovernanceAgentApprovalPending(t *testing.T) {
	agent := NewGovernanceAgent(nil, "objective")

	resp, err := agent.Process(context.Background(), types.NewMessage("review", map[string]any{
		"objective":         "x",
		"requires_approval": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, resp.Status)
}

func TestGovernanceAgentApproves(t *testing.T) {
	agent := NewGovernanceAgent(nil, "objective")

	resp, err := agent.Process(context.Background(), types.NewMessage("review", map[string]any{"objective": "x"}))
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, true, resp.Data["approved"])
}

func TestFuncAdapter(t *testing.T) {
	agent := NewFunc("echo_agent", func(_ context.Context, msg *types.Message) (*types.Response, error) {
		return types.NewSuccessResponse("echo_agent", msg.Data), nil
	})
	assert.Equal(t, "echo_agent", agent.ID())

	resp, err := agent.Process(context.Background(), types.NewMessage("echo", map[string]any{"k": "v"}))
	require.NoError(t, err)
	assert.Equal(t, "v", resp.Data["k"])
}

func TestAgentsHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := types.NewMessage("any", nil)
	for _, agent := range []types.Agent{
		NewPlanAgent(nil),
		NewRiskAgent(nil),
		NewReportAgent(nil),
		NewGovernanceAgent(nil),
	} {
		resp, err := agent.Process(ctx, msg)
		assert.Nil(t, resp, "agent %s", agent.ID())
		assert.ErrorIs(t, err, context.Canceled, "agent %s", agent.ID())
	}
}
