package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// SuspensionRepository handles the durable delay and wait-for-event records.
type SuspensionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const suspensionColumns = `
		id
	  , execution_id
	  , workflow_id
	  , node_id
	  , kind
	  , status
	  , resume_at
	  , wait_event_type
	  , timeout_at
	  , created_at
	  , completed_at
`

// GetByID returns a suspension by its ID.
func (r *SuspensionRepository) GetByID(ctx context.Context, id string) (*models.DelaySuspension, error) {
	query := `SELECT ` + suspensionColumns + ` FROM suspensions WHERE id = $1`

	suspension, err := scanSuspension(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("suspension %s: %w", id, persistence.ErrSuspensionNotFound)
		}

		return nil, fmt.Errorf("failed to scan suspension: %w", err)
	}

	return suspension, nil
}

// Save upserts a suspension row.
func (r *SuspensionRepository) Save(ctx context.Context, suspension *models.DelaySuspension) error {
	if suspension.CreatedAt.IsZero() {
		suspension.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO suspensions (id, execution_id, workflow_id, node_id, kind, status,
			resume_at, wait_event_type, timeout_at, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		suspension.ID, suspension.ExecutionID, suspension.WorkflowID, suspension.NodeID,
		string(suspension.Kind), string(suspension.Status),
		suspension.ResumeAt, suspension.WaitEventType, suspension.TimeoutAt,
		suspension.CreatedAt, suspension.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save suspension %s: %w", suspension.ID, err)
	}

	return nil
}

// ListDue returns waiting suspensions whose resume or timeout timestamp has
// passed.
func (r *SuspensionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DelaySuspension, error) {
	query := `
		SELECT ` + suspensionColumns + `
		FROM suspensions
		WHERE status = $1 AND (resume_at <= $2 OR timeout_at <= $2)
		ORDER BY created_at ASC
	`
	args := []any{string(models.SuspensionStatusWaiting), now}

	if limit > 0 {
		query += ` LIMIT $3`

		args = append(args, limit)
	}

	return r.querySuspensions(ctx, query, args...)
}

// ListWaitingForEvent returns waiting wait-for-event suspensions for one event
// type.
func (r *SuspensionRepository) ListWaitingForEvent(ctx context.Context, eventType string) ([]*models.DelaySuspension, error) {
	query := `
		SELECT ` + suspensionColumns + `
		FROM suspensions
		WHERE status = $1 AND kind = $2 AND wait_event_type = $3
		ORDER BY created_at ASC
	`

	return r.querySuspensions(ctx, query,
		string(models.SuspensionStatusWaiting), string(models.SuspensionKindWaitForEvent), eventType)
}

// MarkCompleted flips a waiting suspension to completed. The status guard in
// the WHERE clause makes completion by overlapping pollers exactly-once.
func (r *SuspensionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE suspensions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`, string(models.SuspensionStatusCompleted), at, id, string(models.SuspensionStatusWaiting))
	if err != nil {
		return fmt.Errorf("failed to complete suspension %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check completion of suspension %s: %w", id, err)
	}

	if affected == 0 {
		return errors.New("suspension already completed")
	}

	return nil
}

func (r *SuspensionRepository) querySuspensions(ctx context.Context, query string, args ...any) ([]*models.DelaySuspension, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspensions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	suspensions := make([]*models.DelaySuspension, 0)

	for rows.Next() {
		suspension, err := scanSuspension(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suspension: %w", err)
		}

		suspensions = append(suspensions, suspension)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suspensions: %w", err)
	}

	return suspensions, nil
}

func scanSuspension(row rowScanner) (*models.DelaySuspension, error) {
	var (
		suspension    models.DelaySuspension
		kind, status  string
		waitEventType sql.NullString
	)

	err := row.Scan(&suspension.ID, &suspension.ExecutionID, &suspension.WorkflowID,
		&suspension.NodeID, &kind, &status,
		&suspension.ResumeAt, &waitEventType, &suspension.TimeoutAt,
		&suspension.CreatedAt, &suspension.CompletedAt)
	if err != nil {
		return nil, err
	}

	suspension.Kind = models.SuspensionKind(kind)
	suspension.Status = models.SuspensionStatus(status)
	suspension.WaitEventType = waitEventType.String

	return &suspension, nil
}
