package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow is the authoring service: CRUD over graph definitions plus the
// draft/active/archived lifecycle transitions.
type Workflow struct {
	persistence persistence.Persistence
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves workflows, optionally filtered by status.
func (w *Workflow) List(ctx context.Context, status *models.WorkflowStatus) ([]*models.Workflow, error) {
	if status == nil {
		return w.persistence.WorkflowRepository().GetAll(ctx)
	}

	if !validStatus(*status) {
		return nil, NewValidationError("List", fmt.Sprintf("invalid status %q", *status), ErrInvalidStatus)
	}

	return w.persistence.WorkflowRepository().ListByStatus(ctx, *status)
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create adds a new workflow in draft status.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.Name == "" {
		return nil, ErrWorkflowNameRequired
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Status = models.WorkflowStatusDraft
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update modifies an existing workflow. Active workflows are immutable; they
// must be archived (or never activated) before their graph changes, so running
// executions always see a stable definition.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusActive {
		return nil, ErrCannotModifyActive
	}

	workflow.ID = workflowID
	workflow.Status = existing.Status
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	if err := w.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Activate validates the graph and transitions the workflow to active, which
// makes it eligible for enqueueing. Activation is idempotent.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	switch workflow.Status {
	case models.WorkflowStatusActive:
		return workflow, nil
	case models.WorkflowStatusArchived:
		return nil, ErrCannotActivateArchive
	}

	if err := validateGraph(workflow); err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatusActive
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to activate workflow: %w", err)
	}

	return workflow, nil
}

// Archive transitions the workflow to archived. Running executions of an
// archived workflow finish their walk; only new enqueues are rejected.
func (w *Workflow) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return workflow, nil
	}

	workflow.Status = models.WorkflowStatusArchived
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to archive workflow: %w", err)
	}

	return workflow, nil
}

// validateGraph checks the structural invariants required before a workflow
// may execute: a trigger node exists, and every edge connects existing nodes.
func validateGraph(workflow *models.Workflow) error {
	if len(workflow.Nodes) == 0 {
		return ErrNodesRequired
	}

	if _, ok := workflow.TriggerNode(); !ok {
		return ErrTriggerNodeRequired
	}

	for _, edge := range workflow.Edges {
		if _, ok := workflow.NodeByID(edge.SourceNodeID); !ok {
			return NewValidationError("Activate",
				fmt.Sprintf("edge %s: source node %s not found", edge.ID, edge.SourceNodeID), ErrDanglingEdge)
		}

		if _, ok := workflow.NodeByID(edge.TargetNodeID); !ok {
			return NewValidationError("Activate",
				fmt.Sprintf("edge %s: target node %s not found", edge.ID, edge.TargetNodeID), ErrDanglingEdge)
		}
	}

	return nil
}

func validStatus(status models.WorkflowStatus) bool {
	switch status {
	case models.WorkflowStatusDraft, models.WorkflowStatusActive, models.WorkflowStatusArchived:
		return true
	default:
		return false
	}
}
