package file

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

const metricsCollection = "metrics"

// MetricsRepository stores per-workflow daily counters, one JSON document per
// workflow/date/metric key.
type MetricsRepository struct {
	root string
	mu   *sync.Mutex
}

func metricID(workflowID, metric, date string) string {
	return workflowID + "_" + date + "_" + metric
}

// Increment bumps a counter under the repository mutex, creating it at 1 on
// first use.
func (mr *MetricsRepository) Increment(_ context.Context, workflowID, metric string, date string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	id := metricID(workflowID, metric, date)

	var row models.DailyMetric

	found, err := readDocument(mr.root, metricsCollection, id, &row)
	if err != nil {
		return err
	}

	if !found {
		row = models.DailyMetric{
			WorkflowID: workflowID,
			Date:       date,
			Metric:     metric,
		}
	}

	row.Count++
	row.UpdatedAt = time.Now().UTC()

	return writeDocument(mr.root, metricsCollection, id, &row)
}

// Get reads a counter; a missing counter reads as zero.
func (mr *MetricsRepository) Get(_ context.Context, workflowID, metric string, date string) (int64, error) {
	var row models.DailyMetric

	found, err := readDocument(mr.root, metricsCollection, metricID(workflowID, metric, date), &row)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, nil
	}

	return row.Count, nil
}

// ListByWorkflow returns every counter row of one workflow, ordered by date.
func (mr *MetricsRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.DailyMetric, error) {
	ids, err := listDocumentIDs(mr.root, metricsCollection)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.DailyMetric, 0)

	for _, id := range ids {
		if !strings.HasPrefix(id, workflowID+"_") {
			continue
		}

		var row models.DailyMetric

		found, err := readDocument(mr.root, metricsCollection, id, &row)
		if err != nil {
			return nil, fmt.Errorf("failed to load metric %s: %w", id, err)
		}

		if found {
			rows = append(rows, &row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}

		return rows[i].Metric < rows[j].Metric
	})

	return rows, nil
}
