package engine

import (
	"context"
	"fmt"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// processPending drains a batch of pending executions. Each execution is
// claimed with an optimistic pending-to-running transition first, so multiple
// engine instances can poll the same store without double-processing.
func (e *Engine) processPending(ctx context.Context) error {
	pending, err := e.store.ExecutionRepository().ListByStatus(ctx, models.ExecutionStatusPending, e.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending executions: %w", err)
	}

	for _, execution := range pending {
		claimed, err := e.store.ExecutionRepository().ClaimPending(ctx, execution.ID)
		if err != nil {
			if persistence.IsExecutionNotClaimable(err) {
				continue
			}

			e.logger.ErrorContext(ctx, "Failed to claim execution", "execution_id", execution.ID, "error", err)

			continue
		}

		if e.loopMetrics != nil {
			e.loopMetrics.ItemsProcessed.WithLabelValues("pending").Inc()
		}

		if err := e.runExecution(ctx, claimed); err != nil {
			// runExecution already persisted the failed status; the loop
			// moves on to the next item.
			e.logger.ErrorContext(ctx, "Execution failed", "execution_id", claimed.ID, "error", err)

			if e.loopMetrics != nil {
				e.loopMetrics.ItemFailures.WithLabelValues("pending").Inc()
			}
		}
	}

	return nil
}

// processResumes finds due suspensions and re-enters the interpreter at the
// successors of each suspended node. MarkCompleted doubles as the claim.
func (e *Engine) processResumes(ctx context.Context) error {
	due, err := e.store.SuspensionRepository().ListDue(ctx, e.now(), e.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due suspensions: %w", err)
	}

	for _, suspension := range due {
		if err := e.store.SuspensionRepository().MarkCompleted(ctx, suspension.ID, e.now()); err != nil {
			e.logger.WarnContext(ctx, "Skipping suspension", "suspension_id", suspension.ID, "error", err)

			continue
		}

		if e.loopMetrics != nil {
			e.loopMetrics.ItemsProcessed.WithLabelValues("resume").Inc()
		}

		if err := e.resumeExecution(ctx, suspension); err != nil {
			e.logger.ErrorContext(ctx, "Resume failed",
				"suspension_id", suspension.ID, "execution_id", suspension.ExecutionID, "error", err)

			if e.loopMetrics != nil {
				e.loopMetrics.ItemFailures.WithLabelValues("resume").Inc()
			}
		}
	}

	return nil
}

// processSchedules fires due recurring schedules by enqueueing a fresh
// execution and advancing the schedule's next due time.
func (e *Engine) processSchedules(ctx context.Context) error {
	now := e.now()

	due, err := e.store.ScheduleRepository().ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due schedules: %w", err)
	}

	for _, schedule := range due {
		trigger := models.TriggerPayload{
			Data: map[string]any{
				"scheduled":   true,
				"schedule_id": schedule.ID,
				"fired_at":    now,
			},
		}

		executionID, err := e.Enqueue(ctx, schedule.WorkflowID, trigger)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to enqueue scheduled execution",
				"schedule_id", schedule.ID, "workflow_id", schedule.WorkflowID, "error", err)

			if e.loopMetrics != nil {
				e.loopMetrics.ItemFailures.WithLabelValues("schedules").Inc()
			}
		} else {
			e.logger.InfoContext(ctx, "Scheduled execution enqueued",
				"schedule_id", schedule.ID, "execution_id", executionID)

			if e.loopMetrics != nil {
				e.loopMetrics.ItemsProcessed.WithLabelValues("schedules").Inc()
			}
		}

		// Advance the schedule even when the enqueue failed, otherwise a
		// broken workflow would fire on every tick.
		if err := schedule.UpdateNextDueAt(now); err != nil {
			e.logger.ErrorContext(ctx, "Failed to advance schedule", "schedule_id", schedule.ID, "error", err)

			continue
		}

		if err := e.store.ScheduleRepository().Save(ctx, schedule); err != nil {
			e.logger.ErrorContext(ctx, "Failed to save schedule", "schedule_id", schedule.ID, "error", err)
		}
	}

	return nil
}
