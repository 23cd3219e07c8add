package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/broker"
	"github.com/hiveworks/dispatch/internal/metrics"
	"github.com/hiveworks/dispatch/types"
)

// orchestratorAgentID is the agent_id stamped on responses the orchestrator
// builds itself (workflow outcomes, unresolved types).
const orchestratorAgentID = "orchestrator"

// Broker topics workflow outcomes are published to.
const (
	TopicWorkflowCompleted = "workflow.completed"
	TopicWorkflowFailed    = "workflow.failed"
	TopicWorkflowTimedOut  = "workflow.timed_out"
)

// RunState tracks a workflow run through its lifecycle.
type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunTimedOut  RunState = "timed_out"
)

// Orchestrator routes messages to agents and workflow runs. The agent and
// workflow registries are guarded by a read/write lock, so registration
// (including hot-swapping an agent for testing) is safe while runs are in
// flight; runs themselves keep all mutable state in their own ledger.
type Orchestrator struct {
	mu        sync.RWMutex
	agents    map[string]types.Agent
	workflows map[string]*WorkflowDef

	broker  *broker.Broker
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBroker sets the broker workflow outcomes are published to. Without a
// broker the orchestrator still runs; outcomes are simply not published.
func WithBroker(b *broker.Broker) Option {
	return func(o *Orchestrator) { o.broker = b }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// New creates an orchestrator with empty agent and workflow registries.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:    make(map[string]types.Agent),
		workflows: make(map[string]*WorkflowDef),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o
}

// RegisterAgent adds an agent to the registry. Re-registering the same ID
// replaces the prior binding (last write wins), enabling hot-swap for
// testing.
func (o *Orchestrator) RegisterAgent(agent types.Agent) {
	o.mu.Lock()
	_, replaced := o.agents[agent.ID()]
	o.agents[agent.ID()] = agent
	o.mu.Unlock()

	o.logger.Debug("agent registered",
		zap.String("agent_id", agent.ID()),
		zap.Bool("replaced", replaced))
}

// RegisterWorkflow adds a workflow definition to the catalogue after
// validating it. Re-registering the same type replaces the prior definition.
func (o *Orchestrator) RegisterWorkflow(def WorkflowDef) error {
	if err := def.validate(); err != nil {
		return err
	}

	o.mu.Lock()
	o.workflows[def.Type] = &def
	o.mu.Unlock()

	o.logger.Debug("workflow registered",
		zap.String("workflow", def.Type),
		zap.Int("steps", len(def.Steps)))
	return nil
}

func (o *Orchestrator) resolveAgent(id string) types.Agent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.agents[id]
}

func (o *Orchestrator) resolveWorkflow(workflowType string) *WorkflowDef {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.workflows[workflowType]
}

// Process handles a message synchronously, with no timeout. A workflow
// message runs every step to completion or to the first unrecoverable agent
// error; the returned response carries the full ledger under data.steps. A
// non-workflow message is forwarded to the matching agent and its response
// returned untouched, or an error response when nothing matches the type.
// Agent failures never escape as raw errors; they become error responses.
func (o *Orchestrator) Process(ctx context.Context, msg *types.Message) (*types.Response, error) {
	if msg == nil {
		return nil, types.NewError(types.ErrAgentNotFound, "nil message")
	}

	if def := o.resolveWorkflow(msg.Type); def != nil {
		r := newRun(def, msg)
		resp, err := o.runWorkflow(ctx, r)
		if err != nil {
			// The caller's context ended the run; report it as a failure
			// carrying the ledger so far.
			resp = o.failedResponse(r, types.NewErrorf(types.ErrAgentFailure,
				"workflow %q aborted", def.Type).WithCause(err))
		}
		o.finishRun(r, resp, 0)
		return resp, nil
	}

	resp, err := o.dispatchAgent(ctx, msg)
	if err != nil {
		return types.NewErrorResponse(orchestratorAgentID, err.Error()), nil
	}
	return resp, nil
}

// ProcessAsync handles a message under a deadline. Step semantics are
// identical to Process, but the run executes as a cancellable task raced
// against a timer. If the task finishes first its result is returned
// unchanged; if the deadline fires first the task is cancelled, the unwind
// is awaited, and a timeout response is built from the ledger accumulated so
// far. A negative timeout is a caller error rejected before any work starts.
// A timeout below one second is accepted with a warning, since it is likely
// to expire before even one step completes on non-trivial agents.
func (o *Orchestrator) ProcessAsync(ctx context.Context, msg *types.Message, timeout time.Duration) (*types.Response, error) {
	if msg == nil {
		return nil, types.NewError(types.ErrAgentNotFound, "nil message")
	}
	if timeout < 0 {
		return nil, types.NewErrorf(types.ErrInvalidTimeout,
			"timeout must be non-negative, got %s", timeout)
	}
	if timeout < time.Second {
		o.logger.Warn("sub-second workflow timeout",
			zap.String("message_type", msg.Type),
			zap.Duration("timeout", timeout))
	}

	def := o.resolveWorkflow(msg.Type)
	if def == nil && o.resolveAgent(msg.Type) == nil {
		err := types.NewErrorf(types.ErrAgentNotFound,
			"no agent or workflow registered for message type %q", msg.Type)
		return types.NewErrorResponse(orchestratorAgentID, err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan runOutcome, 1)

	if def == nil {
		go func() {
			resp, err := o.dispatchAgent(runCtx, msg)
			done <- runOutcome{resp: resp, err: err}
		}()

		out := o.await(runCtx, cancel, done)
		if out.err != nil {
			if runCtx.Err() != nil {
				return o.directTimeoutResponse(msg, timeout), nil
			}
			return types.NewErrorResponse(orchestratorAgentID, out.err.Error()), nil
		}
		return out.resp, nil
	}

	r := newRun(def, msg)
	go func() {
		resp, err := o.runWorkflow(runCtx, r)
		done <- runOutcome{resp: resp, err: err}
	}()

	out := o.await(runCtx, cancel, done)
	if out.err != nil {
		// The deadline cut the run short. The unwind has been awaited, so
		// the ledger is final and no agent work is still executing.
		resp := o.timeoutResponse(r, timeout)
		o.finishRun(r, resp, timeout)
		return resp, nil
	}
	o.finishRun(r, out.resp, timeout)
	return out.resp, nil
}

// runOutcome carries a task's result across the deadline race. err is non-nil
// only when the run was cut short by context cancellation.
type runOutcome struct {
	resp *types.Response
	err  error
}

// await races the task against the deadline. When the deadline fires first
// it signals cancellation and waits for the task to unwind rather than
// abandoning it, so no work leaks past the response. The decision between
// "finished" and "timed out" is keyed on the task's own result: a task that
// completes just as the deadline fires still wins the race.
func (o *Orchestrator) await(runCtx context.Context, cancel context.CancelFunc, done <-chan runOutcome) runOutcome {
	select {
	case out := <-done:
		return out
	case <-runCtx.Done():
		cancel()
		return <-done
	}
}
