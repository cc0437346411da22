package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// TriggerWorkflowHandler enqueues a new execution of another workflow,
// optionally propagating the current execution's identity references.
type TriggerWorkflowHandler struct {
	enqueuer          Enqueuer
	WorkflowID        string `mapstructure:"workflow_id"`
	PropagateIdentity bool   `mapstructure:"propagate_identity"`
}

func NewTriggerWorkflowHandler(config map[string]any, enqueuer Enqueuer) (*TriggerWorkflowHandler, error) {
	handler := &TriggerWorkflowHandler{enqueuer: enqueuer}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid trigger_workflow config: %w", err)
	}

	if handler.WorkflowID == "" {
		return nil, errors.New("missing required field 'workflow_id'")
	}

	return handler, nil
}

func (h *TriggerWorkflowHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	trigger := models.TriggerPayload{
		Data: map[string]any{"triggered_by_execution": execCtx.ExecutionID},
	}

	if h.PropagateIdentity {
		trigger.ContactID = execCtx.ContactID
		trigger.LeadID = execCtx.LeadID
		trigger.OpportunityID = execCtx.OpportunityID
		trigger.EmailAddress = execCtx.EmailAddress
		trigger.PhoneNumber = execCtx.PhoneNumber
	}

	executionID, err := h.enqueuer.Enqueue(ctx, h.WorkflowID, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue sub-workflow: %w", err)
	}

	logger.InfoContext(ctx, "Sub-workflow enqueued", "target_workflow_id", h.WorkflowID, "new_execution_id", executionID)

	return map[string]any{"execution_id": executionID, "workflow_id": h.WorkflowID}, nil
}

// StopWorkflowHandler raises the distinguished stop signal. The interpreter
// treats it as a clean halt, not a failure.
type StopWorkflowHandler struct {
	Reason string `mapstructure:"reason"`
}

func NewStopWorkflowHandler(config map[string]any) (*StopWorkflowHandler, error) {
	handler := &StopWorkflowHandler{}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid stop_workflow config: %w", err)
	}

	return handler, nil
}

func (h *StopWorkflowHandler) Execute(ctx context.Context, _ *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Workflow stop requested", "reason", h.Reason)

	if h.Reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrStopWorkflow, h.Reason)
	}

	return nil, ErrStopWorkflow
}
