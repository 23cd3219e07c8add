package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hiveworks/dispatch/agents"
	"github.com/hiveworks/dispatch/config"
	"github.com/hiveworks/dispatch/types"
)

func projectConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Workflows = []config.WorkflowConfig{
		{
			Type:        "project_initialization",
			Description: "plan, assess, report",
			Steps: []config.StepConfig{
				{Name: "generate_plan", Agent: "plan_agent"},
				{Name: "assess_risks", Agent: "risk_agent"},
				{Name: "generate_report", Agent: "report_agent"},
			},
		},
	}
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(
		WithConfig(projectConfig()),
		WithLogger(zaptest.NewLogger(t)),
		WithMetricsRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	eng.RegisterAgent(agents.NewPlanAgent(nil))
	eng.RegisterAgent(agents.NewRiskAgent(nil))
	eng.RegisterAgent(agents.NewReportAgent(nil))

	eng.Start()
	t.Cleanup(eng.Stop)
	return eng
}

func TestEngineRunsConfiguredWorkflow(t *testing.T) {
	eng := newTestEngine(t)

	completed := make(chan *types.Message, 1)
	eng.Broker().Subscribe("workflow.completed", func(msg *types.Message) {
		completed <- msg
	})

	msg := types.NewMessage("project_initialization", map[string]any{"objective": "ship v1"})
	resp, err := eng.ProcessAsync(context.Background(), msg, 5*time.Second)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "project_initialization", resp.Data["workflow"])

	select {
	case out := <-completed:
		assert.Equal(t, "workflow.completed", out.Type)
		assert.Equal(t, "project_initialization", out.GetString("workflow"))
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event published")
	}
}

func TestEngineZeroTimeoutUsesDefault(t *testing.T) {
	eng := newTestEngine(t)

	msg := types.NewMessage("project_initialization", map[string]any{"objective": "ship v1"})
	resp, err := eng.ProcessAsync(context.Background(), msg, 0)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestEngineDirectDispatch(t *testing.T) {
	eng := newTestEngine(t)
	eng.RegisterAgent(agents.NewFunc("echo_agent", func(_ context.Context, msg *types.Message) (*types.Response, error) {
		return types.NewSuccessResponse("echo_agent", msg.Data), nil
	}))

	resp, err := eng.Process(context.Background(), types.NewMessage("echo_agent", map[string]any{"k": "v"}))
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "v", resp.Data["k"])
}

func TestEngineFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	yaml := `
broker:
  queue_capacity: 64
orchestrator:
  default_timeout: 2s
log:
  level: warn
  format: json
workflows:
  - type: project_initialization
    description: plan then report
    steps:
      - name: generate_plan
        agent: plan_agent
      - name: generate_report
        agent: report_agent
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	eng, err := New(WithConfigFile(path))
	require.NoError(t, err)
	eng.RegisterAgent(agents.NewPlanAgent(nil))
	eng.RegisterAgent(agents.NewReportAgent(nil))
	eng.Start()
	defer eng.Stop()

	resp, err := eng.ProcessAsync(context.Background(), types.NewMessage("project_initialization", nil), 0)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Broker.QueueCapacity = -1

	_, err := New(WithConfig(cfg))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

func TestEngineRejectsInvalidLogLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.Log.Level = "shouty"

	_, err := New(WithConfig(cfg))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

func TestEngineRejectsInvalidWorkflowTable(t *testing.T) {
	cfg := config.Defaults()
	cfg.Workflows = []config.WorkflowConfig{{Type: "broken"}}

	_, err := New(WithConfig(cfg))
	require.Error(t, err)
}
