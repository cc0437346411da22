package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
	"github.com/dripflow/dripflow/pkg/persistence/file"
)

// stubEnqueuer records enqueue calls without running anything.
type stubEnqueuer struct {
	workflowIDs []string
	triggers    []models.TriggerPayload
	err         error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, workflowID string, trigger models.TriggerPayload) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	s.workflowIDs = append(s.workflowIDs, workflowID)
	s.triggers = append(s.triggers, trigger)

	return "exec-stub", nil
}

func TestExecutionEnqueueDelegates(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	enqueuer := &stubEnqueuer{}
	service := NewExecution(store, enqueuer)

	trigger := models.TriggerPayload{ContactID: "contact-1"}

	id, err := service.Enqueue(context.Background(), "wf-1", trigger)
	require.NoError(t, err)
	assert.Equal(t, "exec-stub", id)
	require.Len(t, enqueuer.workflowIDs, 1)
	assert.Equal(t, "wf-1", enqueuer.workflowIDs[0])
	assert.Equal(t, "contact-1", enqueuer.triggers[0].ContactID)
}

func TestExecutionFetchByID(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewExecution(store, &stubEnqueuer{})
	ctx := context.Background()

	require.NoError(t, store.ExecutionRepository().Save(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusCompleted,
	}))

	execution, err := service.FetchByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	_, err = service.FetchByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionActionRecordsRequiresExecution(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewExecution(store, &stubEnqueuer{})
	ctx := context.Background()

	_, err := service.ActionRecords(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))

	require.NoError(t, store.ExecutionRepository().Save(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusCompleted,
	}))
	require.NoError(t, store.ActionRecordRepository().Save(ctx, &models.ActionRecord{
		ID:          "rec-1",
		ExecutionID: "exec-1",
		NodeID:      "mail",
		Status:      models.ActionStatusSuccess,
	}))

	records, err := service.ActionRecords(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mail", records[0].NodeID)
}

func TestExecutionListByWorkflow(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewExecution(store, &stubEnqueuer{})
	ctx := context.Background()

	for _, id := range []string{"exec-1", "exec-2"} {
		require.NoError(t, store.ExecutionRepository().Save(ctx, &models.Execution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusPending,
		}))
	}

	require.NoError(t, store.ExecutionRepository().Save(ctx, &models.Execution{
		ID:         "exec-3",
		WorkflowID: "wf-2",
		Status:     models.ExecutionStatusPending,
	}))

	executions, err := service.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, executions, 2)
}
