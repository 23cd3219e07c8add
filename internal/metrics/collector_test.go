package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collector
	// None of these may panic on a nil collector.
	c.RecordPublish("topic")
	c.RecordDelivery("topic")
	c.RecordDrop("topic", "saturated")
	c.RecordSubscriberPanic("topic")
	c.RecordWorkerRestart()
	c.SetQueueDepth(3)
	c.RecordWorkflowRun("wf", "completed", time.Second)
	c.RecordWorkflowStep("wf", "step", time.Millisecond)
	c.RecordAgentRequest("agent", "success")
}

func TestCollector_RecordsOnFreshRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("dispatch", reg, nil)

	c.RecordPublish("workflow.completed")
	c.RecordDelivery("workflow.completed")
	c.RecordDrop("workflow.completed", "saturated")
	c.SetQueueDepth(7)
	c.RecordWorkflowRun("project_initialization", "completed", 120*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["dispatch_broker_published_total"])
	assert.True(t, names["dispatch_broker_queue_depth"])
	assert.True(t, names["dispatch_workflow_runs_total"])
}

func TestCollector_SeparateRegistriesDoNotCollide(t *testing.T) {
	t.Parallel()

	// Two collectors must be constructible in one process as long as they
	// use separate registries.
	_ = NewCollector("dispatch", prometheus.NewRegistry(), nil)
	_ = NewCollector("dispatch", prometheus.NewRegistry(), nil)
}
