package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/testutil"
)

func TestEnqueueCreatesPendingExecution(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-enqueue",
		[]models.Node{testutil.TriggerNode("trigger")},
		nil,
	)
	h.saveWorkflow(t, workflow)

	trigger := models.TriggerPayload{
		ContactID:    "contact-1",
		LeadID:       "lead-1",
		EmailAddress: "ana@example.com",
		PhoneNumber:  "+15551234",
		Data:         map[string]any{"source": "signup"},
	}

	id, err := h.engine.Enqueue(context.Background(), workflow.ID, trigger)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusPending, execution.Status)
	assert.Equal(t, workflow.ID, execution.WorkflowID)
	assert.Equal(t, "contact-1", execution.ContactID)
	assert.Equal(t, "lead-1", execution.LeadID)
	assert.Equal(t, "ana@example.com", execution.EmailAddress)
	assert.Equal(t, "+15551234", execution.PhoneNumber)
	assert.Equal(t, "signup", execution.TriggerData["source"])
	assert.Equal(t, h.clock.Now(), execution.CreatedAt)
}

func TestEnqueueRejectsUnknownWorkflow(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Enqueue(context.Background(), "missing", models.TriggerPayload{})
	require.Error(t, err)
}

func TestEnqueueRejectsInactiveWorkflow(t *testing.T) {
	h := newHarness(t)

	for _, status := range []models.WorkflowStatus{models.WorkflowStatusDraft, models.WorkflowStatusArchived} {
		workflow := testutil.Workflow("wf-"+string(status),
			[]models.Node{testutil.TriggerNode("trigger")},
			nil,
		)
		workflow.Status = status
		h.saveWorkflow(t, workflow)

		_, err := h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{})
		require.ErrorIs(t, err, ErrWorkflowNotActive, "status %s", status)
	}
}

func TestEnqueueRejectsWorkflowWithoutTrigger(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-no-trigger",
		[]models.Node{testutil.ExitNode("done")},
		nil,
	)
	h.saveWorkflow(t, workflow)

	_, err := h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{})
	require.ErrorIs(t, err, ErrNoTriggerNode)
}

func TestEnqueueValidatesPayloadSchema(t *testing.T) {
	h := newHarness(t)

	trigger := testutil.TriggerNode("trigger")
	trigger.Config["payload_schema"] = map[string]any{
		"type":     "object",
		"required": []any{"plan"},
		"properties": map[string]any{
			"plan": map[string]any{"type": "string"},
		},
	}

	workflow := testutil.Workflow("wf-schema", []models.Node{trigger}, nil)
	h.saveWorkflow(t, workflow)

	// Missing required field.
	_, err := h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{
		Data: map[string]any{"source": "signup"},
	})
	require.ErrorIs(t, err, ErrInvalidTriggerPayload)

	// Wrong type.
	_, err = h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{
		Data: map[string]any{"plan": 42},
	})
	require.ErrorIs(t, err, ErrInvalidTriggerPayload)

	// Nil data against a schema with required fields.
	_, err = h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{})
	require.ErrorIs(t, err, ErrInvalidTriggerPayload)

	// Conforming payload.
	id, err := h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{
		Data: map[string]any{"plan": "pro"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestEnqueueWithoutSchemaAcceptsAnyPayload(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-open",
		[]models.Node{testutil.TriggerNode("trigger")},
		nil,
	)
	h.saveWorkflow(t, workflow)

	id, err := h.engine.Enqueue(context.Background(), workflow.ID, models.TriggerPayload{
		Data: map[string]any{"anything": []any{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestProcessSchedulesEnqueuesDueSchedule(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-scheduled",
		[]models.Node{testutil.TriggerNode("trigger")},
		nil,
	)
	h.saveWorkflow(t, workflow)

	schedule, err := models.NewWorkflowSchedule("sched-1", workflow.ID, "*/5 * * * *")
	require.NoError(t, err)

	// Force the schedule due relative to the harness clock.
	schedule.NextDueAt = h.clock.Now().Add(-time.Minute)
	require.NoError(t, h.store.ScheduleRepository().Save(context.Background(), schedule))

	require.NoError(t, h.engine.processSchedules(context.Background()))

	pending, err := h.store.ExecutionRepository().ListByStatus(
		context.Background(), models.ExecutionStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, workflow.ID, pending[0].WorkflowID)
	assert.Equal(t, true, pending[0].TriggerData["scheduled"])

	// The schedule advanced past the clock, so the next tick is a no-op.
	updated, err := h.store.ScheduleRepository().GetByID(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.True(t, updated.NextDueAt.After(h.clock.Now()))

	require.NoError(t, h.engine.processSchedules(context.Background()))

	pending, err = h.store.ExecutionRepository().ListByStatus(
		context.Background(), models.ExecutionStatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
