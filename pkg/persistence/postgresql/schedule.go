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

// ScheduleRepository stores recurring workflow schedules.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const scheduleColumns = `
		id
	  , workflow_id
	  , cron_expression
	  , next_due_at
	  , active
	  , created_at
	  , updated_at
`

// GetByID returns a schedule by its ID.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("schedule %s: %w", id, persistence.ErrScheduleNotFound)
		}

		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	return schedule, nil
}

// Save upserts a schedule after validating it.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.WorkflowSchedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("invalid schedule %s: %w", schedule.ID, err)
	}

	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}

	schedule.UpdatedAt = now

	query := `
		INSERT INTO schedules (id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.WorkflowID, schedule.CronExpression,
		schedule.NextDueAt, schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}

	return nil
}

// ListDue returns the active schedules whose next execution time has passed.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.WorkflowSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE active = true AND next_due_at <= $1
		ORDER BY next_due_at ASC
	`

	return r.querySchedules(ctx, query, now)
}

// ListActive returns every active schedule.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*models.WorkflowSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE active = true ORDER BY next_due_at ASC`

	return r.querySchedules(ctx, query)
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}

	return nil
}

func (r *ScheduleRepository) querySchedules(ctx context.Context, query string, args ...any) ([]*models.WorkflowSchedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	schedules := make([]*models.WorkflowSchedule, 0)

	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func scanSchedule(row rowScanner) (*models.WorkflowSchedule, error) {
	var schedule models.WorkflowSchedule

	err := row.Scan(&schedule.ID, &schedule.WorkflowID, &schedule.CronExpression,
		&schedule.NextDueAt, &schedule.Active, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}
