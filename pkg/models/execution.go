package models

import "time"

// ExecutionStatus defines the possible states of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
)

// TriggerPayload carries the entity references and raw data that caused an
// execution to be enqueued.
type TriggerPayload struct {
	ContactID     string         `json:"contact_id,omitempty"`
	LeadID        string         `json:"lead_id,omitempty"`
	OpportunityID string         `json:"opportunity_id,omitempty"`
	EmailAddress  string         `json:"email_address,omitempty"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// Execution is one run of a workflow graph against one triggering context. It
// is created by the enqueue API, mutated exclusively by the engine, and never
// deleted (terminal states are soft via Status).
//
// ExecutedNodeIDs is durable on purpose: a resume after a delay replays the
// walk against this list, which is what prevents already-fired actions
// upstream of the suspension from firing again.
type Execution struct {
	ID              string          `json:"id"          validate:"required"`
	WorkflowID      string          `json:"workflow_id" validate:"required"`
	Status          ExecutionStatus `json:"status"`
	ContactID       string          `json:"contact_id,omitempty"`
	LeadID          string          `json:"lead_id,omitempty"`
	OpportunityID   string          `json:"opportunity_id,omitempty"`
	EmailAddress    string          `json:"email_address,omitempty"`
	PhoneNumber     string          `json:"phone_number,omitempty"`
	TriggerData     map[string]any  `json:"trigger_data,omitempty"`
	Variables       map[string]any  `json:"variables,omitempty"`
	ExecutedNodeIDs []string        `json:"executed_node_ids,omitempty"`
	CurrentNodeID   string          `json:"current_node_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	FailedAt        *time.Time      `json:"failed_at,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// HasExecuted reports whether the node already ran in this execution.
func (e *Execution) HasExecuted(nodeID string) bool {
	for _, id := range e.ExecutedNodeIDs {
		if id == nodeID {
			return true
		}
	}

	return false
}
