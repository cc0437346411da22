package models

import "time"

// ActionKind enumerates the closed set of action node behaviors. Dispatch over
// this enum is exhaustive; adding a kind is a compile-time-visible change.
type ActionKind string

const (
	ActionKindSendEmail            ActionKind = "send_email"
	ActionKindSendSMS              ActionKind = "send_sms"
	ActionKindAddTag               ActionKind = "add_tag"
	ActionKindRemoveTag            ActionKind = "remove_tag"
	ActionKindUpdateField          ActionKind = "update_field"
	ActionKindCreateTask           ActionKind = "create_task"
	ActionKindCreateContact        ActionKind = "create_contact"
	ActionKindCreateOpportunity    ActionKind = "create_opportunity"
	ActionKindUpdateOpportunity    ActionKind = "update_opportunity"
	ActionKindMoveOpportunityStage ActionKind = "move_opportunity_stage"
	ActionKindUpdateLeadScore      ActionKind = "update_lead_score"
	ActionKindAssignToUser         ActionKind = "assign_to_user"
	ActionKindNotification         ActionKind = "internal_notification"
	ActionKindWebhook              ActionKind = "webhook"
	ActionKindCalendarEvent        ActionKind = "create_calendar_event"
	ActionKindTriggerWorkflow      ActionKind = "trigger_workflow"
	ActionKindStopWorkflow         ActionKind = "stop_workflow"
)

// ActionStatus defines the outcome recorded for one action handler run.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusStopped ActionStatus = "stopped"
)

// ActionRecord is the append-only audit row written for every executed action
// node, success or failure. The interpreter never reads these back; they exist
// for debugging and analytics.
type ActionRecord struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id" validate:"required"`
	NodeID       string         `json:"node_id"      validate:"required"`
	ActionType   ActionKind     `json:"action_type"`
	Config       map[string]any `json:"config,omitempty"`
	Status       ActionStatus   `json:"status"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ExecutedAt   time.Time      `json:"executed_at"`
}
