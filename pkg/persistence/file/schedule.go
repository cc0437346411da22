package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

const schedulesCollection = "schedules"

// ScheduleRepository stores recurring workflow schedules.
type ScheduleRepository struct {
	root string
}

// GetByID retrieves a schedule by its ID.
func (sr *ScheduleRepository) GetByID(_ context.Context, id string) (*models.WorkflowSchedule, error) {
	var schedule models.WorkflowSchedule

	found, err := readDocument(sr.root, schedulesCollection, id, &schedule)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("schedule %s: %w", id, persistence.ErrScheduleNotFound)
	}

	return &schedule, nil
}

// Save persists a schedule after validating it.
func (sr *ScheduleRepository) Save(_ context.Context, schedule *models.WorkflowSchedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("invalid schedule %s: %w", schedule.ID, err)
	}

	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}

	schedule.UpdatedAt = time.Now().UTC()

	return writeDocument(sr.root, schedulesCollection, schedule.ID, schedule)
}

// ListDue returns the active schedules whose next execution time has passed.
func (sr *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.WorkflowSchedule, error) {
	all, err := sr.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.WorkflowSchedule, 0, len(all))

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

// ListActive returns every active schedule.
func (sr *ScheduleRepository) ListActive(ctx context.Context) ([]*models.WorkflowSchedule, error) {
	ids, err := listDocumentIDs(sr.root, schedulesCollection)
	if err != nil {
		return nil, err
	}

	schedules := make([]*models.WorkflowSchedule, 0, len(ids))

	for _, id := range ids {
		schedule, err := sr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule %s: %w", id, err)
		}

		if schedule.Active {
			schedules = append(schedules, schedule)
		}
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].NextDueAt.Before(schedules[j].NextDueAt)
	})

	return schedules, nil
}

// Delete removes a schedule. Deleting a missing schedule is a no-op.
func (sr *ScheduleRepository) Delete(_ context.Context, id string) error {
	return removeDocument(sr.root, schedulesCollection, id)
}
