// Package testutil provides graph builders for tests.
package testutil

import (
	"github.com/google/uuid"

	"github.com/dripflow/dripflow/pkg/models"
)

// Node creates a node with the given id, kind and config.
func Node(id string, kind models.NodeKind, config map[string]any) models.Node {
	return models.Node{
		ID:     id,
		Kind:   kind,
		Name:   id,
		Config: config,
	}
}

// TriggerNode creates a trigger node.
func TriggerNode(id string) models.Node {
	return Node(id, models.NodeKindTrigger, map[string]any{"trigger_type": "manual"})
}

// ActionNode creates an action node of the given action type.
func ActionNode(id, actionType string, extra map[string]any) models.Node {
	config := map[string]any{"action_type": actionType}
	for k, v := range extra {
		config[k] = v
	}

	return Node(id, models.NodeKindAction, config)
}

// ConditionNode creates a field-compare condition node.
func ConditionNode(id, field, operator string, value any) models.Node {
	return Node(id, models.NodeKindCondition, map[string]any{
		"condition_type": string(models.ConditionKindFieldCompare),
		"field":          field,
		"operator":       operator,
		"value":          value,
	})
}

// DelayNode creates a relative time delay node.
func DelayNode(id string, amount int, unit string) models.Node {
	return Node(id, models.NodeKindDelay, map[string]any{
		"delay_type": "time_delay",
		"amount":     amount,
		"unit":       unit,
	})
}

// SplitNode creates a split node with the given variant weights.
func SplitNode(id string, weights map[string]float64) models.Node {
	anyWeights := make(map[string]any, len(weights))
	for k, v := range weights {
		anyWeights[k] = v
	}

	return Node(id, models.NodeKindSplit, map[string]any{"weights": anyWeights})
}

// ExitNode creates an exit node.
func ExitNode(id string) models.Node {
	return Node(id, models.NodeKindExit, nil)
}

// Edge creates an edge between two nodes.
func Edge(source, target string) models.Edge {
	return models.Edge{
		ID:           uuid.New().String(),
		SourceNodeID: source,
		TargetNodeID: target,
	}
}

// LabeledEdge creates an edge with a branch label.
func LabeledEdge(source, target, label string) models.Edge {
	edge := Edge(source, target)
	edge.BranchLabel = label

	return edge
}

// Workflow creates an active workflow from nodes and edges.
func Workflow(id string, nodes []models.Node, edges []models.Edge) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "workflow " + id,
		Status: models.WorkflowStatusActive,
		Nodes:  nodes,
		Edges:  edges,
		Owner:  "test",
	}
}
