package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestNewPersistenceStripsFileScheme(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)

	require.NoError(t, p.HealthCheck(context.Background()))
	assert.Equal(t, dir, p.root)
}

func TestWorkflowRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		ID:     "wf-1",
		Name:   "Onboarding",
		Status: models.WorkflowStatusDraft,
		Nodes: []models.Node{
			{ID: "trigger", Kind: models.NodeKindTrigger, Config: map[string]any{"trigger_type": "manual"}},
		},
		Owner: "ana",
	}

	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := p.WorkflowRepository().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Onboarding", loaded.Name)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeKindTrigger, loaded.Nodes[0].Kind)
	assert.Equal(t, "manual", loaded.Nodes[0].Config["trigger_type"])
}

func TestWorkflowGetByIDMissingIsNil(t *testing.T) {
	p := newTestPersistence(t)

	loaded, err := p.WorkflowRepository().GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestWorkflowListByStatus(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	for _, w := range []*models.Workflow{
		{ID: "wf-a", Name: "first", Status: models.WorkflowStatusActive},
		{ID: "wf-b", Name: "second", Status: models.WorkflowStatusDraft},
		{ID: "wf-c", Name: "third", Status: models.WorkflowStatusActive},
	} {
		require.NoError(t, p.WorkflowRepository().Save(ctx, w))
	}

	active, err := p.WorkflowRepository().ListByStatus(ctx, models.WorkflowStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	archived, err := p.WorkflowRepository().ListByStatus(ctx, models.WorkflowStatusArchived)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestWorkflowDelete(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, &models.Workflow{ID: "wf-1", Name: "gone soon"}))
	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf-1"))

	loaded, err := p.WorkflowRepository().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is a no-op.
	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf-1"))
}

func TestClaimPendingExactlyOnce(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, execution))

	claimed, err := p.ExecutionRepository().ClaimPending(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	// The second claim loses the race.
	_, err = p.ExecutionRepository().ClaimPending(ctx, "exec-1")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotClaimable(err))
}

func TestClaimPendingMissingExecution(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.ExecutionRepository().ClaimPending(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionListByStatusOrdersOldestFirst(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"exec-c", "exec-a", "exec-b"} {
		require.NoError(t, p.ExecutionRepository().Save(ctx, &models.Execution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	pending, err := p.ExecutionRepository().ListByStatus(ctx, models.ExecutionStatusPending, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "exec-c", pending[0].ID)
	assert.Equal(t, "exec-a", pending[1].ID)
}

func TestSuspensionMarkCompletedExactlyOnce(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	resumeAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	suspension := &models.DelaySuspension{
		ID:          "susp-1",
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "wait",
		Kind:        models.SuspensionKindTimeDelay,
		Status:      models.SuspensionStatusWaiting,
		ResumeAt:    &resumeAt,
	}
	require.NoError(t, p.SuspensionRepository().Save(ctx, suspension))

	// Not due a minute before, due at the resume time.
	due, err := p.SuspensionRepository().ListDue(ctx, resumeAt.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = p.SuspensionRepository().ListDue(ctx, resumeAt, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, p.SuspensionRepository().MarkCompleted(ctx, "susp-1", resumeAt))

	// A completed suspension is no longer claimable or due.
	err = p.SuspensionRepository().MarkCompleted(ctx, "susp-1", resumeAt)
	require.Error(t, err)

	due, err = p.SuspensionRepository().ListDue(ctx, resumeAt.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSplitTestIncrementVariant(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	_, err := p.SplitTestRepository().Get(ctx, "wf-1", "split")
	require.ErrorIs(t, err, persistence.ErrSplitStateNotFound)

	state := models.NewSplitTestState("wf-1", "split", map[string]float64{"A": 50, "B": 50})
	require.NoError(t, p.SplitTestRepository().Save(ctx, state))

	require.NoError(t, p.SplitTestRepository().IncrementVariant(ctx, "wf-1", "split", "A"))
	require.NoError(t, p.SplitTestRepository().IncrementVariant(ctx, "wf-1", "split", "A"))
	require.NoError(t, p.SplitTestRepository().IncrementVariant(ctx, "wf-1", "split", "B"))

	loaded, err := p.SplitTestRepository().Get(ctx, "wf-1", "split")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.VariantCounts["A"])
	assert.Equal(t, int64(1), loaded.VariantCounts["B"])
	assert.Equal(t, int64(0), loaded.VariantCounts["C"])
}

func TestMetricsIncrementAndGet(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	count, err := p.MetricsRepository().Get(ctx, "wf-1", models.MetricSuccess, "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, p.MetricsRepository().Increment(ctx, "wf-1", models.MetricSuccess, "2026-03-15"))
	require.NoError(t, p.MetricsRepository().Increment(ctx, "wf-1", models.MetricSuccess, "2026-03-15"))
	require.NoError(t, p.MetricsRepository().Increment(ctx, "wf-1", models.MetricEmailSent, "2026-03-16"))
	require.NoError(t, p.MetricsRepository().Increment(ctx, "wf-2", models.MetricSuccess, "2026-03-15"))

	count, err = p.MetricsRepository().Get(ctx, "wf-1", models.MetricSuccess, "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rows, err := p.MetricsRepository().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-03-15", rows[0].Date)
	assert.Equal(t, models.MetricSuccess, rows[0].Metric)
	assert.Equal(t, "2026-03-16", rows[1].Date)
}

func TestScheduleListDueAndDelete(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	schedule, err := models.NewWorkflowSchedule("sched-1", "wf-1", "0 9 * * 1")
	require.NoError(t, err)
	require.NoError(t, p.ScheduleRepository().Save(ctx, schedule))

	due, err := p.ScheduleRepository().ListDue(ctx, schedule.NextDueAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = p.ScheduleRepository().ListDue(ctx, schedule.NextDueAt)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sched-1", due[0].ID)

	active, err := p.ScheduleRepository().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, p.ScheduleRepository().Delete(ctx, "sched-1"))

	_, err = p.ScheduleRepository().GetByID(ctx, "sched-1")
	require.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestActionRecordsListByExecution(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for i, node := range []string{"first", "second"} {
		require.NoError(t, p.ActionRecordRepository().Save(ctx, &models.ActionRecord{
			ID:          "rec-" + node,
			ExecutionID: "exec-1",
			NodeID:      node,
			ActionType:  models.ActionKindSendEmail,
			Status:      models.ActionStatusSuccess,
			ExecutedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, p.ActionRecordRepository().Save(ctx, &models.ActionRecord{
		ID:          "rec-other",
		ExecutionID: "exec-2",
		NodeID:      "other",
		ExecutedAt:  base,
	}))

	records, err := p.ActionRecordRepository().ListByExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].NodeID)
	assert.Equal(t, "second", records[1].NodeID)
}

func TestGoalRepositoryListByWorkflow(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.GoalRepository().Save(ctx, &models.GoalRegistration{
		ID:          "goal-1",
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "purchase",
		GoalType:    "purchase",
	}))
	require.NoError(t, p.GoalRepository().Save(ctx, &models.GoalRegistration{
		ID:          "goal-2",
		ExecutionID: "exec-2",
		WorkflowID:  "wf-2",
		NodeID:      "signup",
		GoalType:    "signup",
	}))

	goals, err := p.GoalRepository().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "purchase", goals[0].GoalType)

	all, err := p.GoalRepository().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
