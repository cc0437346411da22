package models

import "time"

// ExecutedNode is one entry of the in-memory audit trail kept while a graph
// walk is in progress.
type ExecutedNode struct {
	NodeID    string    `json:"node_id"`
	Kind      NodeKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// GoalRegistration records that a goal node was visited during an execution.
// Goal achievement scanning across executions is a declared extension point;
// only the registration shape is modeled here.
type GoalRegistration struct {
	ID           string    `json:"id"`
	ExecutionID  string    `json:"execution_id"`
	WorkflowID   string    `json:"workflow_id"`
	NodeID       string    `json:"node_id"`
	GoalType     string    `json:"goal_type"`
	SkipToNodeID string    `json:"skip_to_node_id,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ExecutionContext is the per-run mutable state threaded through node
// interpretation. It is reconstructed from the persisted Execution on every
// run or resume, never serialized itself.
type ExecutionContext struct {
	ExecutionID   string
	WorkflowID    string
	ContactID     string
	LeadID        string
	OpportunityID string
	EmailAddress  string
	PhoneNumber   string
	TriggerData   map[string]any
	Variables     map[string]any
	ExecutedNodes []ExecutedNode
	Goals         []GoalRegistration
}

// HasExecuted reports whether the node already ran, either in this walk or in
// a walk before a suspension. This is the cycle and replay guard.
func (c *ExecutionContext) HasExecuted(nodeID string) bool {
	for _, n := range c.ExecutedNodes {
		if n.NodeID == nodeID {
			return true
		}
	}

	return false
}

// RecordExecuted appends a node to the audit trail.
func (c *ExecutionContext) RecordExecuted(nodeID string, kind NodeKind, at time.Time) {
	c.ExecutedNodes = append(c.ExecutedNodes, ExecutedNode{
		NodeID:    nodeID,
		Kind:      kind,
		Timestamp: at,
	})
}

// ExecutedNodeIDs flattens the audit trail into the durable id list stored on
// the Execution row.
func (c *ExecutionContext) ExecutedNodeIDs() []string {
	ids := make([]string, 0, len(c.ExecutedNodes))
	for _, n := range c.ExecutedNodes {
		ids = append(ids, n.NodeID)
	}

	return ids
}
