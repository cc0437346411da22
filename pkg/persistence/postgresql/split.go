package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// SplitTestRepository stores split-test state keyed by workflow and node.
type SplitTestRepository struct {
	db *sql.DB
}

// Get returns the split state for one node.
func (r *SplitTestRepository) Get(ctx context.Context, workflowID, nodeID string) (*models.SplitTestState, error) {
	query := `
		SELECT workflow_id, node_id, variant_weights, variant_counts, created_at, updated_at
		FROM split_states
		WHERE workflow_id = $1 AND node_id = $2
	`

	var (
		state       models.SplitTestState
		weightsJSON []byte
		countsJSON  []byte
	)

	err := r.db.QueryRowContext(ctx, query, workflowID, nodeID).Scan(
		&state.WorkflowID, &state.NodeID, &weightsJSON, &countsJSON,
		&state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("split state for node %s: %w", nodeID, persistence.ErrSplitStateNotFound)
		}

		return nil, fmt.Errorf("failed to scan split state: %w", err)
	}

	if err := json.Unmarshal(weightsJSON, &state.VariantWeights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variant weights: %w", err)
	}

	if err := json.Unmarshal(countsJSON, &state.VariantCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variant counts: %w", err)
	}

	return &state, nil
}

// Save upserts split state.
func (r *SplitTestRepository) Save(ctx context.Context, state *models.SplitTestState) error {
	state.UpdatedAt = time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = state.UpdatedAt
	}

	weightsJSON, err := json.Marshal(state.VariantWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal variant weights: %w", err)
	}

	countsJSON, err := json.Marshal(state.VariantCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal variant counts: %w", err)
	}

	query := `
		INSERT INTO split_states (workflow_id, node_id, variant_weights, variant_counts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id, node_id) DO UPDATE SET
			variant_weights = EXCLUDED.variant_weights,
			variant_counts = EXCLUDED.variant_counts,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		state.WorkflowID, state.NodeID, weightsJSON, countsJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save split state for node %s: %w", state.NodeID, err)
	}

	return nil
}

// IncrementVariant bumps one variant counter in a single statement, so
// parallel executions through the same split node never lose updates.
func (r *SplitTestRepository) IncrementVariant(ctx context.Context, workflowID, nodeID, variant string) error {
	query := `
		UPDATE split_states
		SET variant_counts = jsonb_set(
				variant_counts,
				ARRAY[$3],
				(COALESCE(variant_counts->>$3, '0')::bigint + 1)::text::jsonb
			),
			updated_at = $4
		WHERE workflow_id = $1 AND node_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, workflowID, nodeID, variant, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment variant %s for node %s: %w", variant, nodeID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check increment for node %s: %w", nodeID, err)
	}

	if affected == 0 {
		return fmt.Errorf("split state for node %s: %w", nodeID, persistence.ErrSplitStateNotFound)
	}

	return nil
}
