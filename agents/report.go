package agents

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// ReportAgent summarizes the accumulated results of a workflow run.
type ReportAgent struct {
	id     string
	logger *zap.Logger
}

// NewReportAgent creates a report agent registered under the "report_agent"
// ID.
func NewReportAgent(logger *zap.Logger) *ReportAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportAgent{id: "report_agent", logger: logger.With(zap.String("agent", "report_agent"))}
}

// ID implements types.Agent.
func (a *ReportAgent) ID() string { return a.id }

// Process implements types.Agent.
func (a *ReportAgent) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results, _ := msg.Get("results").(map[string]any)
	summary := fmt.Sprintf("status report covering %d completed steps", len(results))

	sections := make([]string, 0, len(results))
	for step := range results {
		sections = append(sections, step)
	}
	sort.Strings(sections)

	a.logger.Debug("report generated", zap.Int("sections", len(sections)))
	return types.NewSuccessResponse(a.id, map[string]any{
		"summary":  summary,
		"sections": sections,
	}), nil
}
