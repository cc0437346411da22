package models

import "time"

// SuspensionKind distinguishes how a suspended execution becomes due again.
type SuspensionKind string

const (
	SuspensionKindTimeDelay    SuspensionKind = "time_delay"
	SuspensionKindWaitUntil    SuspensionKind = "wait_until"
	SuspensionKindWaitForEvent SuspensionKind = "wait_for_event"
)

// SuspensionStatus defines the states of a delay suspension.
type SuspensionStatus string

const (
	SuspensionStatusWaiting   SuspensionStatus = "waiting"
	SuspensionStatusCompleted SuspensionStatus = "completed"
)

// DelaySuspension is the durable record that pauses an execution at a delay or
// wait-for-event node. A suspended execution holds no in-memory resources; the
// resume loop rebuilds everything from this row plus the Execution.
type DelaySuspension struct {
	ID            string           `json:"id"           validate:"required"`
	ExecutionID   string           `json:"execution_id" validate:"required"`
	WorkflowID    string           `json:"workflow_id"  validate:"required"`
	NodeID        string           `json:"node_id"      validate:"required"`
	Kind          SuspensionKind   `json:"kind"`
	Status        SuspensionStatus `json:"status"`
	ResumeAt      *time.Time       `json:"resume_at,omitempty"`
	WaitEventType string           `json:"wait_event_type,omitempty"`
	TimeoutAt     *time.Time       `json:"timeout_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// Due reports whether the suspension should be resumed at the given time,
// either because its resume timestamp passed or its wait-for-event timeout
// elapsed.
func (s *DelaySuspension) Due(now time.Time) bool {
	if s.Status != SuspensionStatusWaiting {
		return false
	}

	if s.ResumeAt != nil && !s.ResumeAt.After(now) {
		return true
	}

	if s.TimeoutAt != nil && !s.TimeoutAt.After(now) {
		return true
	}

	return false
}
