package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dripflow/dripflow/pkg/models"
)

var (
	// ErrWorkflowNotActive is returned when enqueueing against a draft or
	// archived workflow.
	ErrWorkflowNotActive = errors.New("workflow is not active")

	// ErrInvalidTriggerPayload is returned when the trigger data fails the
	// trigger node's payload schema.
	ErrInvalidTriggerPayload = errors.New("invalid trigger payload")
)

// Enqueue creates a pending execution for the workflow and returns its id.
// This is the only way executions come into existence; the pending loop picks
// them up on its next tick. The workflow must be active and must have a
// trigger node, and the trigger data must satisfy the trigger node's payload
// schema when one is configured.
func (e *Engine) Enqueue(ctx context.Context, workflowID string, trigger models.TriggerPayload) (string, error) {
	workflow, err := e.store.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return "", fmt.Errorf("workflow %s: not found", workflowID)
	}

	if workflow.Status != models.WorkflowStatusActive {
		return "", fmt.Errorf("%w: workflow %s is %s", ErrWorkflowNotActive, workflowID, workflow.Status)
	}

	triggerNode, ok := workflow.TriggerNode()
	if !ok {
		return "", fmt.Errorf("workflow %s: %w", workflowID, ErrNoTriggerNode)
	}

	if err := validateTriggerData(triggerNode, trigger.Data); err != nil {
		return "", err
	}

	execution := &models.Execution{
		ID:            uuid.New().String(),
		WorkflowID:    workflowID,
		Status:        models.ExecutionStatusPending,
		ContactID:     trigger.ContactID,
		LeadID:        trigger.LeadID,
		OpportunityID: trigger.OpportunityID,
		EmailAddress:  trigger.EmailAddress,
		PhoneNumber:   trigger.PhoneNumber,
		TriggerData:   trigger.Data,
		Variables:     make(map[string]any),
		CreatedAt:     e.now(),
	}

	if err := e.store.ExecutionRepository().Save(ctx, execution); err != nil {
		return "", fmt.Errorf("failed to save execution: %w", err)
	}

	e.logger.InfoContext(ctx, "Execution enqueued",
		"execution_id", execution.ID, "workflow_id", workflowID,
		"contact_id", trigger.ContactID, "lead_id", trigger.LeadID)

	return execution.ID, nil
}

// validateTriggerData checks the trigger data against the JSON schema embedded
// in the trigger node config, if any. Absent schema means any payload is
// accepted.
func validateTriggerData(triggerNode models.Node, data map[string]any) error {
	schema, ok := triggerNode.Config["payload_schema"].(map[string]any)
	if !ok || len(schema) == 0 {
		return nil
	}

	if data == nil {
		data = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTriggerPayload, err)
	}

	if !result.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTriggerPayload, schemaErrors(result))
	}

	return nil
}

func schemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, desc := range result.Errors() {
		if i > 0 {
			msg += "; "
		}

		msg += desc.String()
	}

	return msg
}
