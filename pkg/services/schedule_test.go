package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/persistence/file"
)

func newScheduleFixture(t *testing.T) (*Schedule, *Workflow) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewSchedule(store), NewWorkflow(store)
}

func TestCreateScheduleForActiveWorkflow(t *testing.T) {
	schedules, workflows := newScheduleFixture(t)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	_, err = workflows.Activate(ctx, created.ID)
	require.NoError(t, err)

	schedule, err := schedules.Create(ctx, created.ID, "0 9 * * 1")
	require.NoError(t, err)
	assert.NotEmpty(t, schedule.ID)
	assert.True(t, schedule.Active)
	assert.False(t, schedule.NextDueAt.IsZero())

	active, err := schedules.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateScheduleRejectsDraftWorkflow(t *testing.T) {
	schedules, workflows := newScheduleFixture(t)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	_, err = schedules.Create(ctx, created.ID, "0 9 * * 1")
	require.ErrorIs(t, err, ErrWorkflowNotActive)
}

func TestCreateScheduleRejectsUnknownWorkflow(t *testing.T) {
	schedules, _ := newScheduleFixture(t)

	_, err := schedules.Create(context.Background(), "missing", "0 9 * * 1")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestCreateScheduleRejectsInvalidCron(t *testing.T) {
	schedules, workflows := newScheduleFixture(t)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	_, err = workflows.Activate(ctx, created.ID)
	require.NoError(t, err)

	_, err = schedules.Create(ctx, created.ID, "every monday at nine")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestDeleteSchedule(t *testing.T) {
	schedules, workflows := newScheduleFixture(t)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	_, err = workflows.Activate(ctx, created.ID)
	require.NoError(t, err)

	schedule, err := schedules.Create(ctx, created.ID, "*/10 * * * *")
	require.NoError(t, err)

	require.NoError(t, schedules.Delete(ctx, schedule.ID))

	err = schedules.Delete(ctx, schedule.ID)
	require.ErrorIs(t, err, ErrScheduleNotFound)
}
