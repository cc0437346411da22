// Package file provides file-based persistence for workflows, executions and
// the engine's supporting records. Each entity is one JSON document under a
// per-collection directory, which keeps development and test setups inspectable
// with nothing but a text editor.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dripflow/dripflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file
// system.
type Persistence struct {
	root           string
	workflowRepo   *WorkflowRepository
	executionRepo  *ExecutionRepository
	suspensionRepo *SuspensionRepository
	actionRepo     *ActionRecordRepository
	splitRepo      *SplitTestRepository
	goalRepo       *GoalRepository
	scheduleRepo   *ScheduleRepository
	metricsRepo    *MetricsRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given
// directory. A single mutex serializes the read-modify-write operations
// (claims, counter increments) that the file system cannot make atomic.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	mu := &sync.Mutex{}

	return &Persistence{
		root:           cleanRoot,
		workflowRepo:   &WorkflowRepository{root: cleanRoot},
		executionRepo:  &ExecutionRepository{root: cleanRoot, mu: mu},
		suspensionRepo: &SuspensionRepository{root: cleanRoot, mu: mu},
		actionRepo:     &ActionRecordRepository{root: cleanRoot},
		splitRepo:      &SplitTestRepository{root: cleanRoot, mu: mu},
		goalRepo:       &GoalRepository{root: cleanRoot},
		scheduleRepo:   &ScheduleRepository{root: cleanRoot},
		metricsRepo:    &MetricsRepository{root: cleanRoot, mu: mu},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) SuspensionRepository() persistence.SuspensionRepository {
	return fp.suspensionRepo
}

func (fp *Persistence) ActionRecordRepository() persistence.ActionRecordRepository {
	return fp.actionRepo
}

func (fp *Persistence) SplitTestRepository() persistence.SplitTestRepository {
	return fp.splitRepo
}

func (fp *Persistence) GoalRepository() persistence.GoalRepository {
	return fp.goalRepo
}

func (fp *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return fp.scheduleRepo
}

func (fp *Persistence) MetricsRepository() persistence.MetricsRepository {
	return fp.metricsRepo
}

// readDocument loads one JSON entity. A missing file yields (false, nil) so
// callers can map it to their collection's not-found sentinel.
func readDocument(root, collection, id string, out any) (bool, error) {
	filePath := filepath.Clean(path.Join(root, collection, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return true, nil
}

// writeDocument saves one JSON entity, creating the collection directory on
// first use.
func writeDocument(root, collection, id string, entity any) error {
	dir := path.Join(root, collection)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	return os.WriteFile(path.Join(dir, id+".json"), data, 0600)
}

// listDocumentIDs returns the entity ids in a collection directory.
func listDocumentIDs(root, collection string) ([]string, error) {
	dir := os.DirFS(path.Join(root, collection))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func removeDocument(root, collection, id string) error {
	err := os.Remove(path.Join(root, collection, id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return nil
}

var _ persistence.Persistence = (*Persistence)(nil)
