// Package events defines event types and structures for execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "dripflow.events"             // Execution lifecycle events
const ActionTopic = "dripflow.actions"      // Per-action audit events
const CRMEventTopic = "dripflow.crm.events" // Inbound CRM activity feeding wait-for-event nodes

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionStoppedEvent   EventType = "execution.stopped"
	ExecutionSuspendedEvent EventType = "execution.suspended"
	ExecutionResumedEvent   EventType = "execution.resumed"

	// Per-node events.
	ActionExecutedEvent EventType = "action.executed"
	GoalRegisteredEvent EventType = "goal.registered"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	EngineID   string         `json:"engine_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	ContactID   string         `json:"contact_id,omitempty"`
	LeadID      string         `json:"lead_id,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	NodesExecuted int           `json:"nodes_executed"`
	Duration      time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionStopped struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionStopped) GetType() EventType {
	return ExecutionStoppedEvent
}

type ExecutionSuspended struct {
	BaseEvent

	ExecutionID  string     `json:"execution_id"`
	NodeID       string     `json:"node_id"`
	SuspensionID string     `json:"suspension_id"`
	Kind         string     `json:"kind"`
	ResumeAt     *time.Time `json:"resume_at,omitempty"`
}

func (e ExecutionSuspended) GetType() EventType {
	return ExecutionSuspendedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	NodeID       string `json:"node_id"`
	SuspensionID string `json:"suspension_id"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ActionExecuted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	ActionType  string         `json:"action_type"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (e ActionExecuted) GetType() EventType {
	return ActionExecutedEvent
}

type GoalRegistered struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	GoalType    string `json:"goal_type"`
}

func (e GoalRegistered) GetType() EventType {
	return GoalRegisteredEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
