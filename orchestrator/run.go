package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// run is the per-invocation state of one workflow execution. Every run owns
// its own ledger and cancellation scope; nothing here is shared between
// concurrent runs.
type run struct {
	id    string
	def   *WorkflowDef
	msg   *types.Message
	led   *ledger
	state RunState
	start time.Time
}

func newRun(def *WorkflowDef, msg *types.Message) *run {
	return &run{
		id:    uuid.NewString(),
		def:   def,
		msg:   msg,
		led:   newLedger(),
		state: RunPending,
		start: time.Now(),
	}
}

// runWorkflow executes the run's steps strictly in declared order, feeding
// each step the original message data plus the accumulated prior results and
// committing each outcome to the ledger. It returns a non-nil error only
// when ctx ended the run; agent failures are converted to error responses
// carrying the ledger of steps completed before the failure.
func (o *Orchestrator) runWorkflow(ctx context.Context, r *run) (*types.Response, error) {
	r.state = RunRunning
	o.logger.Debug("workflow run started",
		zap.String("workflow", r.def.Type),
		zap.String("run_id", r.id),
		zap.Int("steps", len(r.def.Steps)))

	results := make(map[string]any, len(r.def.Steps))

	for i, step := range r.def.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		agent := o.resolveAgent(step.AgentID)
		if agent == nil {
			return o.failedResponse(r, types.NewErrorf(types.ErrAgentNotFound,
				"step %q references unknown agent %q", step.Name, step.AgentID)), nil
		}

		mapper := step.Input
		if mapper == nil {
			mapper = DefaultInput
		}
		stepMsg := types.NewMessage(step.AgentID, mapper(results, r.msg.Data))

		stepStart := time.Now()
		resp, err := agent.Process(ctx, stepMsg)
		if err != nil {
			// Cancellation wins over whatever error the agent unwound with.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return o.failedResponse(r, types.NewErrorf(types.ErrAgentFailure,
				"step %d (%s) failed", i+1, step.Name).WithCause(err)), nil
		}
		if resp == nil {
			return o.failedResponse(r, types.NewErrorf(types.ErrAgentFailure,
				"step %d (%s) returned no response", i+1, step.Name)), nil
		}
		if resp.Status == types.StatusError {
			return o.failedResponse(r, types.NewErrorf(types.ErrAgentFailure,
				"step %d (%s) failed: %s", i+1, step.Name, resp.Error)), nil
		}

		o.metrics.RecordWorkflowStep(r.def.Type, step.Name, time.Since(stepStart))
		r.led.append(StepRecord{Step: step.Name, Status: resp.Status, Result: resp.Data})
		results[step.Name] = resp.Data

		o.logger.Debug("workflow step committed",
			zap.String("workflow", r.def.Type),
			zap.String("step", step.Name),
			zap.String("run_id", r.id))
	}

	return types.NewSuccessResponse(orchestratorAgentID, map[string]any{
		"workflow": r.def.Type,
		"steps":    r.led.snapshot(),
	}), nil
}

// dispatchAgent forwards a non-workflow message to the matching agent and
// returns its response untouched. The returned error is a structured
// AGENT_NOT_FOUND or AGENT_FAILURE for the caller to fold into a response.
func (o *Orchestrator) dispatchAgent(ctx context.Context, msg *types.Message) (*types.Response, error) {
	agent := o.resolveAgent(msg.Type)
	if agent == nil {
		o.logger.Warn("unresolved message type", zap.String("message_type", msg.Type))
		o.metrics.RecordAgentRequest(msg.Type, "not_found")
		return nil, types.NewErrorf(types.ErrAgentNotFound,
			"no agent or workflow registered for message type %q", msg.Type)
	}

	resp, err := agent.Process(ctx, msg)
	if err != nil {
		o.metrics.RecordAgentRequest(agent.ID(), "error")
		return nil, types.NewErrorf(types.ErrAgentFailure,
			"agent %q failed", agent.ID()).WithCause(err)
	}
	if resp == nil {
		o.metrics.RecordAgentRequest(agent.ID(), "error")
		return nil, types.NewErrorf(types.ErrAgentFailure,
			"agent %q returned no response", agent.ID())
	}
	o.metrics.RecordAgentRequest(agent.ID(), string(resp.Status))
	return resp, nil
}

// failedResponse builds the FAILED terminal response: the triggering error
// plus the ledger of steps completed before the failure (which may be
// empty). Failed responses never carry partial progress; that field is
// reserved for timeouts.
func (o *Orchestrator) failedResponse(r *run, cause *types.Error) *types.Response {
	resp := types.NewErrorResponse(orchestratorAgentID, cause.Error())
	resp.Data = map[string]any{
		"workflow": r.def.Type,
		"steps":    r.led.snapshot(),
	}
	return resp
}

// timeoutResponse builds the TIMED_OUT terminal response from the ledger as
// accumulated up to the deadline.
func (o *Orchestrator) timeoutResponse(r *run, timeout time.Duration) *types.Response {
	records := r.led.snapshot()
	resp := types.NewResponse(orchestratorAgentID, types.StatusTimeout, map[string]any{
		"workflow": r.def.Type,
		"steps":    records,
	})
	resp.Error = fmt.Sprintf("workflow %q exceeded timeout of %gs", r.def.Type, timeout.Seconds())
	resp.PartialProgress = extractPartialProgress(records, timeout, o.logger)
	return resp
}

// directTimeoutResponse is the deadline outcome for a non-workflow dispatch:
// no steps ran, so partial progress is empty.
func (o *Orchestrator) directTimeoutResponse(msg *types.Message, timeout time.Duration) *types.Response {
	resp := types.NewResponse(orchestratorAgentID, types.StatusTimeout, nil)
	resp.Error = fmt.Sprintf("agent %q exceeded timeout of %gs", msg.Type, timeout.Seconds())
	resp.PartialProgress = extractPartialProgress(nil, timeout, o.logger)
	return resp
}

// finishRun commits the terminal state: metrics, the structured outcome
// event for failures and timeouts (step names and counts only, never
// payloads), and publication to the matching broker topic so observers can
// react without coupling to the orchestrator. timeout is zero on the
// synchronous path.
func (o *Orchestrator) finishRun(r *run, resp *types.Response, timeout time.Duration) {
	duration := time.Since(r.start)

	var topic string
	switch resp.Status {
	case types.StatusTimeout:
		r.state = RunTimedOut
		topic = TopicWorkflowTimedOut
	case types.StatusError:
		r.state = RunFailed
		topic = TopicWorkflowFailed
	default:
		r.state = RunCompleted
		topic = TopicWorkflowCompleted
	}
	o.metrics.RecordWorkflowRun(r.def.Type, string(r.state), duration)

	completed := completedStepNames(r.led.snapshot())
	switch r.state {
	case RunTimedOut:
		o.logger.Warn("workflow run timed out",
			zap.String("event_type", "workflow_timeout"),
			zap.String("workflow", r.def.Type),
			zap.String("message_type", r.msg.Type),
			zap.Duration("timeout", timeout),
			zap.Int("completed_step_count", len(completed)),
			zap.Strings("completed_steps", completed),
			zap.String("run_id", r.id))
	case RunFailed:
		o.logger.Warn("workflow run failed",
			zap.String("event_type", "workflow_error"),
			zap.String("workflow", r.def.Type),
			zap.String("message_type", r.msg.Type),
			zap.String("error", resp.Error),
			zap.Int("completed_step_count", len(completed)),
			zap.Strings("completed_steps", completed),
			zap.String("run_id", r.id))
	default:
		o.logger.Info("workflow run completed",
			zap.String("workflow", r.def.Type),
			zap.String("run_id", r.id),
			zap.Int("steps", len(completed)),
			zap.Duration("duration", duration))
	}

	if o.broker == nil {
		return
	}
	evt := types.NewMessage(topic, map[string]any{
		"workflow":     r.def.Type,
		"message_type": r.msg.Type,
		"status":       string(resp.Status),
		"run_id":       r.id,
		"total_steps":  len(completed),
	})
	if err := o.broker.Publish(topic, evt); err != nil {
		o.logger.Warn("workflow outcome publish dropped",
			zap.String("topic", topic),
			zap.Error(err))
	}
}
