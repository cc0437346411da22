package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

const goalsCollection = "goals"

// GoalRepository stores goal registrations.
type GoalRepository struct {
	root string
}

// Save persists one goal registration.
func (gr *GoalRepository) Save(_ context.Context, goal *models.GoalRegistration) error {
	if goal.RegisteredAt.IsZero() {
		goal.RegisteredAt = time.Now().UTC()
	}

	return writeDocument(gr.root, goalsCollection, goal.ID, goal)
}

// ListByWorkflow returns the registrations for one workflow.
func (gr *GoalRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.GoalRegistration, error) {
	all, err := gr.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.GoalRegistration, 0, len(all))

	for _, goal := range all {
		if goal.WorkflowID == workflowID {
			filtered = append(filtered, goal)
		}
	}

	return filtered, nil
}

// ListAll returns every goal registration, oldest first.
func (gr *GoalRepository) ListAll(_ context.Context) ([]*models.GoalRegistration, error) {
	ids, err := listDocumentIDs(gr.root, goalsCollection)
	if err != nil {
		return nil, err
	}

	goals := make([]*models.GoalRegistration, 0, len(ids))

	for _, id := range ids {
		var goal models.GoalRegistration

		found, err := readDocument(gr.root, goalsCollection, id, &goal)
		if err != nil {
			return nil, fmt.Errorf("failed to load goal %s: %w", id, err)
		}

		if found {
			goals = append(goals, &goal)
		}
	}

	sort.Slice(goals, func(i, j int) bool {
		return goals[i].RegisteredAt.Before(goals[j].RegisteredAt)
	})

	return goals, nil
}
