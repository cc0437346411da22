package services

import (
	"context"
	"fmt"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution exposes the enqueue entry point and read access to execution
// state. Enqueueing delegates to the engine's validation (active workflow,
// payload schema); the service never creates execution rows itself.
type Execution struct {
	persistence persistence.Persistence
	enqueuer    actions.Enqueuer
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence, enqueuer actions.Enqueuer) *Execution {
	return &Execution{
		persistence: persistence,
		enqueuer:    enqueuer,
	}
}

// Enqueue creates a pending execution for the workflow and returns its id.
func (e *Execution) Enqueue(ctx context.Context, workflowID string, trigger models.TriggerPayload) (string, error) {
	return e.enqueuer.Enqueue(ctx, workflowID, trigger)
}

// FetchByID retrieves an execution by its ID.
func (e *Execution) FetchByID(ctx context.Context, id string) (*models.Execution, error) {
	return e.persistence.ExecutionRepository().GetByID(ctx, id)
}

// ListByWorkflow returns every execution of one workflow, oldest first.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return e.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
}

// ActionRecords returns the per-action audit trail of one execution.
func (e *Execution) ActionRecords(ctx context.Context, executionID string) ([]*models.ActionRecord, error) {
	if _, err := e.FetchByID(ctx, executionID); err != nil {
		return nil, err
	}

	records, err := e.persistence.ActionRecordRepository().ListByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action records: %w", err)
	}

	return records, nil
}
