package types

import "time"

// Status represents the terminal state of a processing attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPending Status = "pending"
	// StatusTimeout is produced only by the orchestrator's deadline-bound
	// path; a leaf agent never returns it.
	StatusTimeout Status = "timeout"
)

// PartialProgress describes how far a deadline-bound workflow run got before
// the deadline fired. It carries step names only, never step payloads, so it
// is safe to log and return verbatim. Produced exclusively alongside
// StatusTimeout; failed runs never carry it, which lets callers distinguish
// "ran out of time" from "something broke" without parsing error strings.
type PartialProgress struct {
	CompletedSteps      []string `json:"completed_steps"`
	TotalStepsCompleted int      `json:"total_steps_completed"`
	TimeoutSeconds      float64  `json:"timeout_seconds"`
}

// Response is the uniform result envelope produced by an agent or by the
// orchestrator.
type Response struct {
	AgentID         string           `json:"agent_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Status          Status           `json:"status"`
	Data            map[string]any   `json:"data,omitempty"`
	Error           string           `json:"error,omitempty"`
	PartialProgress *PartialProgress `json:"partial_progress,omitempty"`
}

// NewResponse creates a response with the given status, stamped with the
// current time.
func NewResponse(agentID string, status Status, data map[string]any) *Response {
	return &Response{
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Data:      data,
	}
}

// NewSuccessResponse creates a success response.
func NewSuccessResponse(agentID string, data map[string]any) *Response {
	return NewResponse(agentID, StatusSuccess, data)
}

// NewErrorResponse creates an error response with the given detail message.
func NewErrorResponse(agentID, errMsg string) *Response {
	r := NewResponse(agentID, StatusError, nil)
	r.Error = errMsg
	return r
}

// NewPendingResponse creates a pending response for work that has been
// accepted but not finished (e.g. an approval gate).
func NewPendingResponse(agentID string, data map[string]any) *Response {
	return NewResponse(agentID, StatusPending, data)
}

// IsSuccess reports whether the response finished successfully.
func (r *Response) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}
