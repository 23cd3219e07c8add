package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/hiveworks/dispatch/types"
)

func TestExtractPartialProgress_EmptyLedger(t *testing.T) {
	t.Parallel()

	pp := extractPartialProgress(nil, 200*time.Millisecond, zap.NewNop())
	require.NotNil(t, pp)
	assert.NotNil(t, pp.CompletedSteps, "completed steps must always be a list")
	assert.Empty(t, pp.CompletedSteps)
	assert.Equal(t, 0, pp.TotalStepsCompleted)
	assert.Equal(t, 0.2, pp.TimeoutSeconds)
}

func TestExtractPartialProgress_WellFormedLedger(t *testing.T) {
	t.Parallel()

	records := []StepRecord{
		{Step: "generate_plan", Status: types.StatusSuccess, Result: map[string]any{"plan": "p"}},
		{Step: "assess_risks", Status: types.StatusSuccess},
	}
	pp := extractPartialProgress(records, time.Second, zap.NewNop())
	assert.Equal(t, []string{"generate_plan", "assess_risks"}, pp.CompletedSteps)
	assert.Equal(t, 2, pp.TotalStepsCompleted)
	assert.Equal(t, 1.0, pp.TimeoutSeconds)
}

func TestExtractPartialProgress_MalformedEntriesSkippedWithReason(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	records := []StepRecord{
		{Step: "first", Status: types.StatusSuccess},
		{Status: types.StatusSuccess}, // missing name
		{Step: "third", Status: types.StatusSuccess},
	}

	pp := extractPartialProgress(records, time.Second, zap.New(core))
	assert.Equal(t, []string{"first", "third"}, pp.CompletedSteps)
	assert.Equal(t, 2, pp.TotalStepsCompleted)

	entries := logs.FilterMessage("malformed ledger entry skipped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger_entry_missing_name", entries[0].ContextMap()["reason"])
}

// Property: for any ledger contents, well-formed or not, completed steps is
// a non-nil list whose length equals the reported count.
func TestExtractPartialProgress_ShapeProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "entries")
		records := make([]StepRecord, n)
		for i := range records {
			// Roughly a third of entries are malformed (empty name).
			if rapid.IntRange(0, 2).Draw(t, "malformed") != 0 {
				records[i].Step = rapid.StringMatching(`step_[a-z]{1,8}`).Draw(t, "name")
			}
			records[i].Status = types.StatusSuccess
		}

		pp := extractPartialProgress(records, time.Second, zap.NewNop())
		require.NotNil(t, pp.CompletedSteps)
		require.Equal(t, len(pp.CompletedSteps), pp.TotalStepsCompleted)
		for _, name := range pp.CompletedSteps {
			require.NotEmpty(t, name)
		}
	})
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	l := newLedger()
	l.append(StepRecord{Step: "a", Status: types.StatusSuccess})

	snap := l.snapshot()
	l.append(StepRecord{Step: "b", Status: types.StatusSuccess})

	assert.Len(t, snap, 1)
	assert.Len(t, l.snapshot(), 2)
}
