package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/dripflow/dripflow/pkg/events"
	"github.com/dripflow/dripflow/pkg/models"
)

type goalConfig struct {
	GoalType     string `mapstructure:"goal_type"`
	SkipToNodeID string `mapstructure:"skip_to_node_id"`
}

// registerGoal records that the walk passed a goal node, both in the
// in-memory context and as a durable row for the achievement scanner.
func (e *Engine) registerGoal(ctx context.Context, execution *models.Execution, execCtx *models.ExecutionContext, node models.Node) error {
	var config goalConfig
	if err := mapstructure.Decode(node.Config, &config); err != nil {
		return fmt.Errorf("invalid goal config: %w", err)
	}

	goal := models.GoalRegistration{
		ID:           uuid.New().String(),
		ExecutionID:  execution.ID,
		WorkflowID:   execution.WorkflowID,
		NodeID:       node.ID,
		GoalType:     config.GoalType,
		SkipToNodeID: config.SkipToNodeID,
		RegisteredAt: e.now(),
	}

	execCtx.Goals = append(execCtx.Goals, goal)

	if err := e.store.GoalRepository().Save(ctx, &goal); err != nil {
		return fmt.Errorf("failed to save goal registration: %w", err)
	}

	e.publish(ctx, execution.WorkflowID, events.GoalRegistered{
		BaseEvent:   e.newEvent(events.GoalRegisteredEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		GoalType:    config.GoalType,
	})

	return nil
}

// processGoals is the goal-achievement scanning loop. Cross-execution
// achievement detection (and the skip-ahead it would enable) is an extension
// point: only the registration shape is defined, so the loop surveys waiting
// registrations and logs them for operators.
func (e *Engine) processGoals(ctx context.Context) error {
	goals, err := e.store.GoalRepository().ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list goal registrations: %w", err)
	}

	if len(goals) == 0 {
		return nil
	}

	byWorkflow := make(map[string]int)
	for _, goal := range goals {
		byWorkflow[goal.WorkflowID]++
	}

	for workflowID, count := range byWorkflow {
		e.logger.DebugContext(ctx, "Goal registrations pending achievement scan",
			"workflow_id", workflowID, "registrations", count)
	}

	if e.loopMetrics != nil {
		e.loopMetrics.ItemsProcessed.WithLabelValues("goals").Add(float64(len(goals)))
	}

	return nil
}
