package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConditionEdge(t *testing.T) {
	edges := []Edge{
		{ID: "e1", SourceNodeID: "cond", TargetNodeID: "yes-path", BranchLabel: "true"},
		{ID: "e2", SourceNodeID: "cond", TargetNodeID: "no-path", BranchLabel: "false"},
	}

	edge, found := ResolveConditionEdge(edges, true)
	require.True(t, found)
	assert.Equal(t, "yes-path", edge.TargetNodeID)

	edge, found = ResolveConditionEdge(edges, false)
	require.True(t, found)
	assert.Equal(t, "no-path", edge.TargetNodeID)
}

func TestResolveConditionEdgeSynonymsAndCase(t *testing.T) {
	edges := []Edge{
		{ID: "e1", TargetNodeID: "yes-path", BranchLabel: "Yes"},
		{ID: "e2", TargetNodeID: "no-path", BranchLabel: "NO"},
	}

	edge, found := ResolveConditionEdge(edges, true)
	require.True(t, found)
	assert.Equal(t, "yes-path", edge.TargetNodeID)

	edge, found = ResolveConditionEdge(edges, false)
	require.True(t, found)
	assert.Equal(t, "no-path", edge.TargetNodeID)
}

func TestResolveConditionEdgeFallbacks(t *testing.T) {
	// Unlabeled edge wins over a mismatched label.
	edges := []Edge{
		{ID: "e1", TargetNodeID: "labeled", BranchLabel: "true"},
		{ID: "e2", TargetNodeID: "plain"},
	}

	edge, found := ResolveConditionEdge(edges, false)
	require.True(t, found)
	assert.Equal(t, "plain", edge.TargetNodeID)

	// All labeled, none matching: first edge.
	edges = []Edge{
		{ID: "e1", TargetNodeID: "first", BranchLabel: "true"},
		{ID: "e2", TargetNodeID: "second", BranchLabel: "maybe"},
	}

	edge, found = ResolveConditionEdge(edges, false)
	require.True(t, found)
	assert.Equal(t, "first", edge.TargetNodeID)

	_, found = ResolveConditionEdge(nil, true)
	assert.False(t, found)
}

func TestResolveSplitEdge(t *testing.T) {
	edges := []Edge{
		{ID: "e1", TargetNodeID: "arm-a", BranchLabel: "a"},
		{ID: "e2", TargetNodeID: "arm-b", BranchLabel: "B"},
	}

	edge, found := ResolveSplitEdge(edges, "A")
	require.True(t, found)
	assert.Equal(t, "arm-a", edge.TargetNodeID)

	edge, found = ResolveSplitEdge(edges, "B")
	require.True(t, found)
	assert.Equal(t, "arm-b", edge.TargetNodeID)

	// Unknown variant falls back to the first edge.
	edge, found = ResolveSplitEdge(edges, "C")
	require.True(t, found)
	assert.Equal(t, "arm-a", edge.TargetNodeID)

	_, found = ResolveSplitEdge(nil, "A")
	assert.False(t, found)
}

func TestOutgoingEdgesPreservesDefinitionOrder(t *testing.T) {
	edges := []Edge{
		{ID: "e1", SourceNodeID: "n1", TargetNodeID: "a"},
		{ID: "e2", SourceNodeID: "n2", TargetNodeID: "b"},
		{ID: "e3", SourceNodeID: "n1", TargetNodeID: "c"},
	}

	out := OutgoingEdges(edges, "n1")
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].TargetNodeID)
	assert.Equal(t, "c", out[1].TargetNodeID)
}
