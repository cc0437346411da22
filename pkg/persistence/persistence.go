// Package persistence provides the data storage abstraction layer for
// workflows, executions, suspensions and analytics counters.
package persistence

import (
	"context"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

// Persistence aggregates the repositories backing the engine. Implementations
// exist for the file system (development, tests) and PostgreSQL (production).
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	SuspensionRepository() SuspensionRepository
	ActionRecordRepository() ActionRecordRepository
	SplitTestRepository() SplitTestRepository
	GoalRepository() GoalRepository
	ScheduleRepository() ScheduleRepository
	MetricsRepository() MetricsRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow graph definitions.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution rows. Claiming is the only mutation the
// polling loops perform concurrently; everything after a successful claim is
// single-writer.
type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	Save(ctx context.Context, execution *models.Execution) error
	ListByStatus(ctx context.Context, status models.ExecutionStatus, limit int) ([]*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	// ClaimPending transitions an execution from pending to running. It
	// returns ErrExecutionNotClaimable when another engine instance won the
	// race, so overlapping pollers process each execution exactly once.
	ClaimPending(ctx context.Context, id string) (*models.Execution, error)
}

// SuspensionRepository stores the durable delay and wait-for-event records.
type SuspensionRepository interface {
	GetByID(ctx context.Context, id string) (*models.DelaySuspension, error)
	Save(ctx context.Context, suspension *models.DelaySuspension) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DelaySuspension, error)
	ListWaitingForEvent(ctx context.Context, eventType string) ([]*models.DelaySuspension, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}

// ActionRecordRepository stores the append-only action audit trail.
type ActionRecordRepository interface {
	Save(ctx context.Context, record *models.ActionRecord) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.ActionRecord, error)
}

// SplitTestRepository stores split-test weights and counters, keyed by
// workflow and node.
type SplitTestRepository interface {
	Get(ctx context.Context, workflowID, nodeID string) (*models.SplitTestState, error)
	Save(ctx context.Context, state *models.SplitTestState) error

	// IncrementVariant bumps one variant counter atomically so parallel
	// executions through the same split node never lose updates.
	IncrementVariant(ctx context.Context, workflowID, nodeID, variant string) error
}

// GoalRepository stores goal registrations written when executions pass goal
// nodes.
type GoalRepository interface {
	Save(ctx context.Context, goal *models.GoalRegistration) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.GoalRegistration, error)
	ListAll(ctx context.Context) ([]*models.GoalRegistration, error)
}

// ScheduleRepository stores recurring workflow schedules.
type ScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowSchedule, error)
	Save(ctx context.Context, schedule *models.WorkflowSchedule) error
	ListDue(ctx context.Context, now time.Time) ([]*models.WorkflowSchedule, error)
	ListActive(ctx context.Context) ([]*models.WorkflowSchedule, error)
	Delete(ctx context.Context, id string) error
}

// MetricsRepository stores the per-workflow daily analytics counters.
type MetricsRepository interface {
	Increment(ctx context.Context, workflowID, metric string, date string) error
	Get(ctx context.Context, workflowID, metric string, date string) (int64, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.DailyMetric, error)
}
