package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence/file"
)

func TestStatsForWorkflowAggregatesDailyRows(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	workflows := NewWorkflow(store)
	stats := NewStats(store)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	metrics := store.MetricsRepository()
	require.NoError(t, metrics.Increment(ctx, created.ID, models.MetricSuccess, "2026-03-14"))
	require.NoError(t, metrics.Increment(ctx, created.ID, models.MetricSuccess, "2026-03-15"))
	require.NoError(t, metrics.Increment(ctx, created.ID, models.MetricEmailSent, "2026-03-15"))
	require.NoError(t, metrics.Increment(ctx, created.ID, models.MetricEmailSent, "2026-03-15"))

	result, err := stats.ForWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.WorkflowID)
	assert.Equal(t, int64(2), result.Totals[models.MetricSuccess])
	assert.Equal(t, int64(2), result.Totals[models.MetricEmailSent])
	assert.Len(t, result.Daily, 3)
}

func TestStatsForWorkflowEmpty(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	workflows := NewWorkflow(store)
	stats := NewStats(store)
	ctx := context.Background()

	created, err := workflows.Create(ctx, validDraft())
	require.NoError(t, err)

	result, err := stats.ForWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Totals)
	assert.Empty(t, result.Daily)
}

func TestStatsForWorkflowNotFound(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	stats := NewStats(store)

	_, err := stats.ForWorkflow(context.Background(), "missing")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}
