package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

// MetricsRepository stores the per-workflow daily analytics counters.
type MetricsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Increment bumps a counter with an upsert, creating it at 1 on first use.
func (r *MetricsRepository) Increment(ctx context.Context, workflowID, metric string, date string) error {
	query := `
		INSERT INTO daily_metrics (workflow_id, date, metric, count, updated_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (workflow_id, date, metric) DO UPDATE SET
			count = daily_metrics.count + 1,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, workflowID, date, metric, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment metric %s for workflow %s: %w", metric, workflowID, err)
	}

	return nil
}

// Get reads a counter; a missing counter reads as zero.
func (r *MetricsRepository) Get(ctx context.Context, workflowID, metric string, date string) (int64, error) {
	var count int64

	err := r.db.QueryRowContext(ctx,
		"SELECT count FROM daily_metrics WHERE workflow_id = $1 AND date = $2 AND metric = $3",
		workflowID, date, metric).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to query metric %s for workflow %s: %w", metric, workflowID, err)
	}

	return count, nil
}

// ListByWorkflow returns every counter row of one workflow, ordered by date.
func (r *MetricsRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.DailyMetric, error) {
	query := `
		SELECT workflow_id, date, metric, count, updated_at
		FROM daily_metrics
		WHERE workflow_id = $1
		ORDER BY date ASC, metric ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	metrics := make([]*models.DailyMetric, 0)

	for rows.Next() {
		var row models.DailyMetric

		err := rows.Scan(&row.WorkflowID, &row.Date, &row.Metric, &row.Count, &row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}

		metrics = append(metrics, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	return metrics, nil
}
