package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

// ActionRecordRepository stores the append-only action audit trail.
type ActionRecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save inserts one action record.
func (r *ActionRecordRepository) Save(ctx context.Context, record *models.ActionRecord) error {
	if record.ExecutedAt.IsZero() {
		record.ExecutedAt = time.Now().UTC()
	}

	configJSON, err := json.Marshal(record.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal action result: %w", err)
	}

	query := `
		INSERT INTO action_records (id, execution_id, node_id, action_type, config,
			status, result, error_message, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.ExecutionID, record.NodeID, string(record.ActionType),
		configJSON, string(record.Status), resultJSON, record.ErrorMessage, record.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to save action record %s: %w", record.ID, err)
	}

	return nil
}

// ListByExecution returns the records of one execution in execution order.
func (r *ActionRecordRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.ActionRecord, error) {
	query := `
		SELECT id, execution_id, node_id, action_type, config, status, result, error_message, executed_at
		FROM action_records
		WHERE execution_id = $1
		ORDER BY executed_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action records: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	records := make([]*models.ActionRecord, 0)

	for rows.Next() {
		var (
			record                 models.ActionRecord
			actionType, status     string
			configJSON, resultJSON []byte
			errorMessage           sql.NullString
		)

		err := rows.Scan(&record.ID, &record.ExecutionID, &record.NodeID, &actionType,
			&configJSON, &status, &resultJSON, &errorMessage, &record.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action record: %w", err)
		}

		record.ActionType = models.ActionKind(actionType)
		record.Status = models.ActionStatus(status)
		record.ErrorMessage = errorMessage.String

		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &record.Config); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
			}
		}

		if len(resultJSON) > 0 {
			if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action result: %w", err)
			}
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action records: %w", err)
	}

	return records, nil
}
