package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, not executable
)

// Workflow is the persisted definition of an automation graph. The engine only
// reads it; authoring tooling owns creation and mutation.
type Workflow struct {
	ID          string         `json:"id"          validate:"required"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`
	Owner       string         `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return Node{}, false
}

// TriggerNode returns the first trigger node of the graph. Executions start
// there; a workflow without one cannot run.
func (w *Workflow) TriggerNode() (Node, bool) {
	for _, node := range w.Nodes {
		if node.Kind == NodeKindTrigger {
			return node, true
		}
	}

	return Node{}, false
}
