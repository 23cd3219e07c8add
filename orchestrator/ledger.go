package orchestrator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/types"
)

// StepRecord is one committed entry in a run's ledger.
type StepRecord struct {
	Step   string         `json:"step"`
	Status types.Status   `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}

// ledger is the per-run, append-only record of step outcomes. Each run owns
// its own instance; it is never shared or reused across invocations.
type ledger struct {
	mu      sync.Mutex
	records []StepRecord
}

func newLedger() *ledger { return &ledger{} }

func (l *ledger) append(rec StepRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

func (l *ledger) snapshot() []StepRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StepRecord, len(l.records))
	copy(out, l.records)
	return out
}

// extractPartialProgress builds the partial-progress summary for a timed-out
// run. Extraction is deliberately defensive: a malformed ledger entry (one
// missing its step name) is logged with a reason code and skipped rather
// than propagated, and the completed-steps list is always non-nil, so
// callers can rely on its shape no matter what the ledger held. Step
// payloads are never included: partial progress carries names only.
func extractPartialProgress(records []StepRecord, timeout time.Duration, logger *zap.Logger) *types.PartialProgress {
	completed := make([]string, 0, len(records))
	for i, rec := range records {
		if rec.Step == "" {
			logger.Warn("malformed ledger entry skipped",
				zap.String("reason", "ledger_entry_missing_name"),
				zap.Int("index", i))
			continue
		}
		completed = append(completed, rec.Step)
	}
	return &types.PartialProgress{
		CompletedSteps:      completed,
		TotalStepsCompleted: len(completed),
		TimeoutSeconds:      timeout.Seconds(),
	}
}

// completedStepNames lists the well-formed step names in ledger order.
func completedStepNames(records []StepRecord) []string {
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Step == "" {
			continue
		}
		names = append(names, rec.Step)
	}
	return names
}
