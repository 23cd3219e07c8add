package orchestrator

import (
	"github.com/hiveworks/dispatch/types"
)

// InputMapper builds a step's input from the results accumulated so far
// (keyed by step name) and the original message data.
type InputMapper func(results map[string]any, original map[string]any) map[string]any

// StepDef is one agent invocation inside a workflow definition.
type StepDef struct {
	// Name identifies the step in ledgers and partial-progress reports.
	Name string
	// AgentID names the registered agent this step invokes.
	AgentID string
	// Input maps accumulated results and the original message data to this
	// step's input. DefaultInput is used when nil.
	Input InputMapper
}

// WorkflowDef is a named, statically ordered sequence of agent invocations.
// Definitions are fixed at registration time and immutable during a run;
// steps are never reordered or parallelized, since later steps may depend on
// earlier steps' outputs.
type WorkflowDef struct {
	Type        string
	Description string
	Steps       []StepDef
}

// DefaultInput merges the original message data with the accumulated results
// of prior steps under the "results" key.
func DefaultInput(results map[string]any, original map[string]any) map[string]any {
	merged := make(map[string]any, len(original)+1)
	for k, v := range original {
		merged[k] = v
	}
	if len(results) > 0 {
		snapshot := make(map[string]any, len(results))
		for k, v := range results {
			snapshot[k] = v
		}
		merged["results"] = snapshot
	}
	return merged
}

func (d *WorkflowDef) validate() error {
	if d.Type == "" {
		return types.NewError(types.ErrInvalidWorkflow, "workflow type must not be empty")
	}
	if len(d.Steps) == 0 {
		return types.NewErrorf(types.ErrInvalidWorkflow, "workflow %q has no steps", d.Type)
	}
	seen := make(map[string]bool, len(d.Steps))
	for i, step := range d.Steps {
		if step.Name == "" {
			return types.NewErrorf(types.ErrInvalidWorkflow, "workflow %q: step %d has no name", d.Type, i+1)
		}
		if step.AgentID == "" {
			return types.NewErrorf(types.ErrInvalidWorkflow, "workflow %q: step %q has no agent binding", d.Type, step.Name)
		}
		if seen[step.Name] {
			return types.NewErrorf(types.ErrInvalidWorkflow, "workflow %q: duplicate step name %q", d.Type, step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}
