// Package web provides the HTTP handlers and request types of the workflow
// and execution API.
package web

import "github.com/dripflow/dripflow/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow. New
// workflows always start in draft status.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Owner       string         `json:"owner"       validate:"required"`
	Nodes       []models.Node  `json:"nodes"`
	Edges       []models.Edge  `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. Fields
// left nil keep their current values.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Nodes       []models.Node  `json:"nodes,omitempty"`
	Edges       []models.Edge  `json:"edges,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// EnqueueExecutionRequest is the request body for enqueueing an execution.
type EnqueueExecutionRequest struct {
	WorkflowID    string         `json:"workflow_id" validate:"required"`
	ContactID     string         `json:"contact_id,omitempty"`
	LeadID        string         `json:"lead_id,omitempty"`
	OpportunityID string         `json:"opportunity_id,omitempty"`
	EmailAddress  string         `json:"email_address,omitempty"  validate:"omitempty,email"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// TriggerPayload converts the request into the engine's trigger payload.
func (r EnqueueExecutionRequest) TriggerPayload() models.TriggerPayload {
	return models.TriggerPayload{
		ContactID:     r.ContactID,
		LeadID:        r.LeadID,
		OpportunityID: r.OpportunityID,
		EmailAddress:  r.EmailAddress,
		PhoneNumber:   r.PhoneNumber,
		Data:          r.Data,
	}
}

// CreateScheduleRequest is the request body for attaching a cron schedule to a
// workflow.
type CreateScheduleRequest struct {
	WorkflowID     string `json:"workflow_id"     validate:"required"`
	CronExpression string `json:"cron_expression" validate:"required"`
}
