package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

// GoalRepository stores goal registrations.
type GoalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save inserts one goal registration.
func (r *GoalRepository) Save(ctx context.Context, goal *models.GoalRegistration) error {
	if goal.RegisteredAt.IsZero() {
		goal.RegisteredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO goals (id, execution_id, workflow_id, node_id, goal_type, skip_to_node_id, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID, goal.ExecutionID, goal.WorkflowID, goal.NodeID,
		goal.GoalType, goal.SkipToNodeID, goal.RegisteredAt)
	if err != nil {
		return fmt.Errorf("failed to save goal %s: %w", goal.ID, err)
	}

	return nil
}

// ListByWorkflow returns the registrations for one workflow.
func (r *GoalRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.GoalRegistration, error) {
	query := `
		SELECT id, execution_id, workflow_id, node_id, goal_type, skip_to_node_id, registered_at
		FROM goals
		WHERE workflow_id = $1
		ORDER BY registered_at ASC
	`

	return r.queryGoals(ctx, query, workflowID)
}

// ListAll returns every goal registration.
func (r *GoalRepository) ListAll(ctx context.Context) ([]*models.GoalRegistration, error) {
	query := `
		SELECT id, execution_id, workflow_id, node_id, goal_type, skip_to_node_id, registered_at
		FROM goals
		ORDER BY registered_at ASC
	`

	return r.queryGoals(ctx, query)
}

func (r *GoalRepository) queryGoals(ctx context.Context, query string, args ...any) ([]*models.GoalRegistration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	goals := make([]*models.GoalRegistration, 0)

	for rows.Next() {
		var (
			goal         models.GoalRegistration
			skipToNodeID sql.NullString
		)

		err := rows.Scan(&goal.ID, &goal.ExecutionID, &goal.WorkflowID, &goal.NodeID,
			&goal.GoalType, &skipToNodeID, &goal.RegisteredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}

		goal.SkipToNodeID = skipToNodeID.String

		goals = append(goals, &goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}
