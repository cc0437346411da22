package file

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

const executionsCollection = "executions"

// ExecutionRepository handles execution rows. The shared mutex makes
// ClaimPending an atomic read-modify-write against the file system.
type ExecutionRepository struct {
	root string
	mu   *sync.Mutex
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	var execution models.Execution

	found, err := readDocument(er.root, executionsCollection, id, &execution)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

// Save persists an execution row.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	return writeDocument(er.root, executionsCollection, execution.ID, execution)
}

// ListByStatus returns up to limit executions in the given status, oldest
// first so the pending loop drains in enqueue order.
func (er *ExecutionRepository) ListByStatus(ctx context.Context, status models.ExecutionStatus, limit int) ([]*models.Execution, error) {
	ids, err := listDocumentIDs(er.root, executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := er.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if execution.Status == status {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

// ListByWorkflow returns every execution of one workflow.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	ids, err := listDocumentIDs(er.root, executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := er.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})

	return executions, nil
}

// ClaimPending transitions pending to running under the repository mutex.
func (er *ExecutionRepository) ClaimPending(ctx context.Context, id string) (*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusPending {
		return nil, persistence.NewExecutionError("ClaimPending", id, persistence.ErrExecutionNotClaimable)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	if err := er.Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save claimed execution %s: %w", id, err)
	}

	return execution, nil
}
