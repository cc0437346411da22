package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// WorkflowSchedule is a recurring trigger for a workflow, stored with a
// precomputed next execution time so the scheduled-triggers loop can query due
// rows without holding per-schedule timers.
type WorkflowSchedule struct {
	ID             string    `json:"id"              validate:"required"`
	WorkflowID     string    `json:"workflow_id"     validate:"required"`
	CronExpression string    `json:"cron_expression" validate:"required"`
	NextDueAt      time.Time `json:"next_due_at"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewWorkflowSchedule creates a schedule with its first due time computed.
func NewWorkflowSchedule(id, workflowID, cronExpression string) (*WorkflowSchedule, error) {
	now := time.Now().UTC()
	schedule := &WorkflowSchedule{
		ID:             id,
		WorkflowID:     workflowID,
		CronExpression: cronExpression,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := schedule.calculateNextDueAt(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt recomputes the next execution time from now. Called by the
// scheduled-triggers loop after each enqueue.
func (s *WorkflowSchedule) UpdateNextDueAt(now time.Time) error {
	return s.calculateNextDueAt(now)
}

func (s *WorkflowSchedule) calculateNextDueAt(referenceTime time.Time) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue checks if this schedule should fire at the given time.
func (s *WorkflowSchedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate checks the schedule fields, including the cron expression format.
func (s *WorkflowSchedule) Validate() error {
	if s.ID == "" || s.WorkflowID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(s.CronExpression)

	return err
}
