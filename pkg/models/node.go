// Package models defines the core domain models for graph-based workflow execution.
package models

import "strings"

// NodeKind represents the behavioral category of a workflow node.
type NodeKind string

const (
	NodeKindTrigger      NodeKind = "trigger"
	NodeKindAction       NodeKind = "action"
	NodeKindCondition    NodeKind = "condition"
	NodeKindDelay        NodeKind = "delay"
	NodeKindGoal         NodeKind = "goal"
	NodeKindSplit        NodeKind = "split"
	NodeKindExit         NodeKind = "exit"
	NodeKindWaitForEvent NodeKind = "wait_for_event"
)

// Node represents a single unit of behavior in a workflow graph. Config carries
// the kind-specific payload authored by the builder UI; its shape is interpreted
// by the action handlers, condition evaluators, and the scheduler.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Kind   NodeKind       `json:"kind"   validate:"required"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// Edge is a directed connection between two nodes. BranchLabel tags edges
// leaving condition nodes ("true"/"false") and split nodes ("A".."D").
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	BranchLabel  string `json:"branch_label,omitempty"`
}

// OutgoingEdges returns the edges leaving the given node, in definition order.
func OutgoingEdges(edges []Edge, nodeID string) []Edge {
	var out []Edge

	for _, edge := range edges {
		if edge.SourceNodeID == nodeID {
			out = append(out, edge)
		}
	}

	return out
}

// ResolveConditionEdge picks the single outgoing edge for a condition result.
// It prefers an edge whose label matches the boolean outcome (accepting
// "yes"/"no" as synonyms, case-insensitive), then the first unlabeled edge,
// then the first edge at all.
func ResolveConditionEdge(out []Edge, result bool) (Edge, bool) {
	want := []string{"false", "no"}
	if result {
		want = []string{"true", "yes"}
	}

	for _, edge := range out {
		label := strings.ToLower(edge.BranchLabel)
		for _, w := range want {
			if label == w {
				return edge, true
			}
		}
	}

	for _, edge := range out {
		if edge.BranchLabel == "" {
			return edge, true
		}
	}

	if len(out) > 0 {
		return out[0], true
	}

	return Edge{}, false
}

// ResolveSplitEdge picks the outgoing edge matching the selected split variant
// letter, falling back to the first outgoing edge.
func ResolveSplitEdge(out []Edge, variant string) (Edge, bool) {
	for _, edge := range out {
		if strings.EqualFold(edge.BranchLabel, variant) {
			return edge, true
		}
	}

	if len(out) > 0 {
		return out[0], true
	}

	return Edge{}, false
}
