package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

const workflowsCollection = "workflows"

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string
}

// GetByID retrieves a workflow by its ID. A missing workflow is (nil, nil).
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := readDocument(wr.root, workflowsCollection, workflowID, &workflow)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return &workflow, nil
}

// GetAll loads every stored workflow, sorted by creation time ascending.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := listDocumentIDs(wr.root, workflowsCollection)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// ListByStatus returns the workflows in the given status.
func (wr *WorkflowRepository) ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.Workflow, error) {
	all, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.Status == status {
			filtered = append(filtered, workflow)
		}
	}

	return filtered, nil
}

// Save persists a workflow, stamping timestamps.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return writeDocument(wr.root, workflowsCollection, workflow.ID, workflow)
}

// Delete removes a workflow by its ID. Deleting a missing workflow is a no-op.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	return removeDocument(wr.root, workflowsCollection, id)
}
