package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// ErrScheduleNotFound is returned when a schedule is not found.
var ErrScheduleNotFound = persistence.ErrScheduleNotFound

// Schedule manages the recurring triggers attached to workflows. The engine's
// schedule loop fires them; this service owns their lifecycle.
type Schedule struct {
	persistence persistence.Persistence
}

// NewSchedule creates a new schedule service.
func NewSchedule(persistence persistence.Persistence) *Schedule {
	return &Schedule{
		persistence: persistence,
	}
}

// Create registers a cron schedule for an active workflow. The first due time
// is computed immediately so the engine loop can pick it up.
func (s *Schedule) Create(ctx context.Context, workflowID, cronExpression string) (*models.WorkflowSchedule, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, ErrWorkflowNotActive
	}

	schedule, err := models.NewWorkflowSchedule(uuid.New().String(), workflowID, cronExpression)
	if err != nil {
		return nil, NewValidationError("CreateSchedule", "invalid cron expression: "+err.Error(), ErrInvalidRequest)
	}

	if err := s.persistence.ScheduleRepository().Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	return schedule, nil
}

// FetchByID retrieves a schedule by its ID.
func (s *Schedule) FetchByID(ctx context.Context, id string) (*models.WorkflowSchedule, error) {
	return s.persistence.ScheduleRepository().GetByID(ctx, id)
}

// ListActive returns every active schedule.
func (s *Schedule) ListActive(ctx context.Context) ([]*models.WorkflowSchedule, error) {
	return s.persistence.ScheduleRepository().ListActive(ctx)
}

// Delete removes a schedule by its ID.
func (s *Schedule) Delete(ctx context.Context, id string) error {
	if _, err := s.persistence.ScheduleRepository().GetByID(ctx, id); err != nil {
		return err
	}

	return s.persistence.ScheduleRepository().Delete(ctx, id)
}
