package models

import "time"

// SplitVariants is the ordered set of split-test arms.
var SplitVariants = []string{"A", "B", "C", "D"}

// SplitTestState holds the weights and visit counters for one split node.
// Lazily created on first visit; counters are incremented atomically by the
// persistence layer so parallel executions cannot lose updates.
type SplitTestState struct {
	WorkflowID     string             `json:"workflow_id" validate:"required"`
	NodeID         string             `json:"node_id"     validate:"required"`
	VariantWeights map[string]float64 `json:"variant_weights"`
	VariantCounts  map[string]int64   `json:"variant_counts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewSplitTestState initializes state for a split node with the given weights,
// zeroing the counters for every known variant.
func NewSplitTestState(workflowID, nodeID string, weights map[string]float64) *SplitTestState {
	now := time.Now().UTC()
	counts := make(map[string]int64, len(SplitVariants))

	for _, v := range SplitVariants {
		counts[v] = 0
	}

	return &SplitTestState{
		WorkflowID:     workflowID,
		NodeID:         nodeID,
		VariantWeights: weights,
		VariantCounts:  counts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SelectVariant walks the cumulative weight thresholds A through D and returns
// the first variant the draw falls under. Weights need not sum to 100; a draw
// beyond every threshold defaults to variant A so the chosen path is never
// left unassigned.
func (s *SplitTestState) SelectVariant(draw float64) string {
	cumulative := 0.0

	for _, v := range SplitVariants {
		cumulative += s.VariantWeights[v]
		if draw < cumulative {
			return v
		}
	}

	return SplitVariants[0]
}
