package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

const actionRecordsCollection = "action_records"

// ActionRecordRepository stores the append-only action audit trail.
type ActionRecordRepository struct {
	root string
}

// Save persists one action record.
func (ar *ActionRecordRepository) Save(_ context.Context, record *models.ActionRecord) error {
	if record.ExecutedAt.IsZero() {
		record.ExecutedAt = time.Now().UTC()
	}

	return writeDocument(ar.root, actionRecordsCollection, record.ID, record)
}

// ListByExecution returns the records of one execution in execution order.
func (ar *ActionRecordRepository) ListByExecution(_ context.Context, executionID string) ([]*models.ActionRecord, error) {
	ids, err := listDocumentIDs(ar.root, actionRecordsCollection)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ActionRecord, 0)

	for _, id := range ids {
		var record models.ActionRecord

		found, err := readDocument(ar.root, actionRecordsCollection, id, &record)
		if err != nil {
			return nil, fmt.Errorf("failed to load action record %s: %w", id, err)
		}

		if found && record.ExecutionID == executionID {
			records = append(records, &record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ExecutedAt.Before(records[j].ExecutedAt)
	})

	return records, nil
}
