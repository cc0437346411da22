package services

import (
	"context"
	"fmt"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// WorkflowStats aggregates the daily counters of one workflow into totals plus
// the raw per-day rows.
type WorkflowStats struct {
	WorkflowID string                `json:"workflow_id"`
	Totals     map[string]int64      `json:"totals"`
	Daily      []*models.DailyMetric `json:"daily"`
}

// Stats serves the reporting reads over the analytics counters.
type Stats struct {
	persistence persistence.Persistence
}

// NewStats creates a new stats service.
func NewStats(persistence persistence.Persistence) *Stats {
	return &Stats{
		persistence: persistence,
	}
}

// ForWorkflow returns the accumulated metrics of one workflow.
func (s *Stats) ForWorkflow(ctx context.Context, workflowID string) (*WorkflowStats, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	daily, err := s.persistence.MetricsRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}

	totals := make(map[string]int64)
	for _, row := range daily {
		totals[row.Metric] += row.Count
	}

	return &WorkflowStats{
		WorkflowID: workflowID,
		Totals:     totals,
		Daily:      daily,
	}, nil
}
