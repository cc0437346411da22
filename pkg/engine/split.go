package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

type splitConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`
}

// allocateVariant draws a weighted random variant for a split node, lazily
// creating the persisted state on first visit and atomically bumping the
// chosen variant's counter.
func (e *Engine) allocateVariant(ctx context.Context, workflow *models.Workflow, node models.Node) (string, error) {
	state, err := e.store.SplitTestRepository().Get(ctx, workflow.ID, node.ID)
	if err != nil {
		if !errors.Is(err, persistence.ErrSplitStateNotFound) {
			return "", fmt.Errorf("failed to load split state: %w", err)
		}

		var config splitConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return "", fmt.Errorf("invalid split config: %w", err)
		}

		state = models.NewSplitTestState(workflow.ID, node.ID, config.Weights)
		if err := e.store.SplitTestRepository().Save(ctx, state); err != nil {
			return "", fmt.Errorf("failed to save split state: %w", err)
		}
	}

	variant := state.SelectVariant(e.draw())

	if err := e.store.SplitTestRepository().IncrementVariant(ctx, workflow.ID, node.ID, variant); err != nil {
		return "", fmt.Errorf("failed to count split variant: %w", err)
	}

	return variant, nil
}
