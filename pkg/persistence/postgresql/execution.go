package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// ExecutionRepository handles execution rows.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const executionColumns = `
		id
	  , workflow_id
	  , status
	  , contact_id
	  , lead_id
	  , opportunity_id
	  , email_address
	  , phone_number
	  , trigger_data
	  , variables
	  , executed_node_ids
	  , current_node_id
	  , error_message
	  , created_at
	  , started_at
	  , completed_at
	  , failed_at
`

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// Save upserts an execution row.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	triggerJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	variablesJSON, err := json.Marshal(execution.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	executedJSON, err := json.Marshal(execution.ExecutedNodeIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal executed node ids: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, contact_id, lead_id, opportunity_id,
			email_address, phone_number, trigger_data, variables, executed_node_ids,
			current_node_id, error_message, created_at, started_at, completed_at, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			variables = EXCLUDED.variables,
			executed_node_ids = EXCLUDED.executed_node_ids,
			current_node_id = EXCLUDED.current_node_id,
			error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, string(execution.Status),
		execution.ContactID, execution.LeadID, execution.OpportunityID,
		execution.EmailAddress, execution.PhoneNumber,
		triggerJSON, variablesJSON, executedJSON,
		execution.CurrentNodeID, execution.ErrorMessage,
		execution.CreatedAt, execution.StartedAt, execution.CompletedAt, execution.FailedAt)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// ListByStatus returns up to limit executions in the given status, oldest
// first.
func (r *ExecutionRepository) ListByStatus(ctx context.Context, status models.ExecutionStatus, limit int) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE status = $1 ORDER BY created_at ASC`
	args := []any{string(status)}

	if limit > 0 {
		query += ` LIMIT $2`

		args = append(args, limit)
	}

	return r.queryExecutions(ctx, query, args...)
}

// ListByWorkflow returns every execution of one workflow.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE workflow_id = $1 ORDER BY created_at ASC`

	return r.queryExecutions(ctx, query, workflowID)
}

// ClaimPending transitions pending to running with a conditional update, so
// concurrent engine instances process each execution exactly once.
func (r *ExecutionRepository) ClaimPending(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		UPDATE executions
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + executionColumns

	row := r.db.QueryRowContext(ctx, query,
		string(models.ExecutionStatusRunning), time.Now().UTC(),
		id, string(models.ExecutionStatusPending))

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ClaimPending", id, persistence.ErrExecutionNotClaimable)
		}

		return nil, fmt.Errorf("failed to claim execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution                              models.Execution
		status                                 string
		contactID, leadID, opportunityID       sql.NullString
		emailAddress, phoneNumber              sql.NullString
		currentNodeID, errorMessage            sql.NullString
		triggerJSON, variablesJSON, executedID []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &status,
		&contactID, &leadID, &opportunityID, &emailAddress, &phoneNumber,
		&triggerJSON, &variablesJSON, &executedID,
		&currentNodeID, &errorMessage,
		&execution.CreatedAt, &execution.StartedAt, &execution.CompletedAt, &execution.FailedAt)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.ContactID = contactID.String
	execution.LeadID = leadID.String
	execution.OpportunityID = opportunityID.String
	execution.EmailAddress = emailAddress.String
	execution.PhoneNumber = phoneNumber.String
	execution.CurrentNodeID = currentNodeID.String
	execution.ErrorMessage = errorMessage.String

	if len(triggerJSON) > 0 {
		if err := json.Unmarshal(triggerJSON, &execution.TriggerData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &execution.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	if len(executedID) > 0 {
		if err := json.Unmarshal(executedID, &execution.ExecutedNodeIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal executed node ids: %w", err)
		}
	}

	return &execution, nil
}
