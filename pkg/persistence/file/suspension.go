package file

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

const suspensionsCollection = "suspensions"

// SuspensionRepository handles the durable delay and wait-for-event records.
type SuspensionRepository struct {
	root string
	mu   *sync.Mutex
}

// GetByID retrieves a suspension by its ID.
func (sr *SuspensionRepository) GetByID(_ context.Context, id string) (*models.DelaySuspension, error) {
	var suspension models.DelaySuspension

	found, err := readDocument(sr.root, suspensionsCollection, id, &suspension)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("suspension %s: %w", id, persistence.ErrSuspensionNotFound)
	}

	return &suspension, nil
}

// Save persists a suspension row.
func (sr *SuspensionRepository) Save(_ context.Context, suspension *models.DelaySuspension) error {
	if suspension.CreatedAt.IsZero() {
		suspension.CreatedAt = time.Now().UTC()
	}

	return writeDocument(sr.root, suspensionsCollection, suspension.ID, suspension)
}

// ListDue returns up to limit waiting suspensions whose resume or timeout
// timestamp has passed, oldest first.
func (sr *SuspensionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DelaySuspension, error) {
	all, err := sr.list(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.DelaySuspension, 0, len(all))

	for _, suspension := range all {
		if suspension.Due(now) {
			due = append(due, suspension)
		}
	}

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

// ListWaitingForEvent returns waiting wait-for-event suspensions for one event
// type.
func (sr *SuspensionRepository) ListWaitingForEvent(ctx context.Context, eventType string) ([]*models.DelaySuspension, error) {
	all, err := sr.list(ctx)
	if err != nil {
		return nil, err
	}

	waiting := make([]*models.DelaySuspension, 0)

	for _, suspension := range all {
		if suspension.Status == models.SuspensionStatusWaiting &&
			suspension.Kind == models.SuspensionKindWaitForEvent &&
			suspension.WaitEventType == eventType {
			waiting = append(waiting, suspension)
		}
	}

	return waiting, nil
}

// MarkCompleted flips a waiting suspension to completed under the mutex so
// overlapping resume pollers complete each suspension exactly once.
func (sr *SuspensionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	suspension, err := sr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if suspension.Status != models.SuspensionStatusWaiting {
		return errors.New("suspension already completed")
	}

	suspension.Status = models.SuspensionStatusCompleted
	suspension.CompletedAt = &at

	return sr.Save(ctx, suspension)
}

func (sr *SuspensionRepository) list(ctx context.Context) ([]*models.DelaySuspension, error) {
	ids, err := listDocumentIDs(sr.root, suspensionsCollection)
	if err != nil {
		return nil, err
	}

	suspensions := make([]*models.DelaySuspension, 0, len(ids))

	for _, id := range ids {
		suspension, err := sr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load suspension %s: %w", id, err)
		}

		suspensions = append(suspensions, suspension)
	}

	sort.Slice(suspensions, func(i, j int) bool {
		return suspensions[i].CreatedAt.Before(suspensions[j].CreatedAt)
	})

	return suspensions, nil
}
