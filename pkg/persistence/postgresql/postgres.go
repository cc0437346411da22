// Package postgresql provides the PostgreSQL persistence implementation for
// workflows, executions and the engine's supporting records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/dripflow/dripflow/pkg/persistence"
	"github.com/dripflow/dripflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	workflowRepo   *WorkflowRepository
	executionRepo  *ExecutionRepository
	suspensionRepo *SuspensionRepository
	actionRepo     *ActionRecordRepository
	splitRepo      *SplitTestRepository
	goalRepo       *GoalRepository
	scheduleRepo   *ScheduleRepository
	metricsRepo    *MetricsRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		workflowRepo:   &WorkflowRepository{db: database, logger: logger},
		executionRepo:  &ExecutionRepository{db: database, logger: logger},
		suspensionRepo: &SuspensionRepository{db: database, logger: logger},
		actionRepo:     &ActionRecordRepository{db: database, logger: logger},
		splitRepo:      &SplitTestRepository{db: database},
		goalRepo:       &GoalRepository{db: database, logger: logger},
		scheduleRepo:   &ScheduleRepository{db: database, logger: logger},
		metricsRepo:    &MetricsRepository{db: database, logger: logger},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) SuspensionRepository() persistence.SuspensionRepository {
	return p.suspensionRepo
}

func (p *Persistence) ActionRecordRepository() persistence.ActionRecordRepository {
	return p.actionRepo
}

func (p *Persistence) SplitTestRepository() persistence.SplitTestRepository {
	return p.splitRepo
}

func (p *Persistence) GoalRepository() persistence.GoalRepository {
	return p.goalRepo
}

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return p.scheduleRepo
}

func (p *Persistence) MetricsRepository() persistence.MetricsRepository {
	return p.metricsRepo
}

var _ persistence.Persistence = (*Persistence)(nil)
