package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

const splitStatesCollection = "split_states"

// SplitTestRepository stores split-test state keyed by workflow and node.
type SplitTestRepository struct {
	root string
	mu   *sync.Mutex
}

func splitStateID(workflowID, nodeID string) string {
	return workflowID + "_" + nodeID
}

// Get retrieves the split state for one node.
func (st *SplitTestRepository) Get(_ context.Context, workflowID, nodeID string) (*models.SplitTestState, error) {
	var state models.SplitTestState

	found, err := readDocument(st.root, splitStatesCollection, splitStateID(workflowID, nodeID), &state)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("split state for node %s: %w", nodeID, persistence.ErrSplitStateNotFound)
	}

	return &state, nil
}

// Save persists split state.
func (st *SplitTestRepository) Save(_ context.Context, state *models.SplitTestState) error {
	state.UpdatedAt = time.Now().UTC()

	return writeDocument(st.root, splitStatesCollection, splitStateID(state.WorkflowID, state.NodeID), state)
}

// IncrementVariant bumps one variant counter under the repository mutex.
func (st *SplitTestRepository) IncrementVariant(ctx context.Context, workflowID, nodeID, variant string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	state, err := st.Get(ctx, workflowID, nodeID)
	if err != nil {
		return err
	}

	if state.VariantCounts == nil {
		state.VariantCounts = make(map[string]int64)
	}

	state.VariantCounts[variant]++

	return st.Save(ctx, state)
}
