package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/dripflow/dripflow/pkg/events"
	"github.com/dripflow/dripflow/pkg/models"
)

// DefaultWaitTimeoutHours bounds wait-for-event nodes that never see their
// event: 7 days.
const DefaultWaitTimeoutHours = 168

// ErrInvalidDelayConfig is returned for delay nodes whose config cannot be
// turned into a resume time.
var ErrInvalidDelayConfig = errors.New("invalid delay configuration")

type delayConfig struct {
	DelayType string `mapstructure:"delay_type"`
	Amount    int64  `mapstructure:"amount"`
	Unit      string `mapstructure:"unit"`
	Date      string `mapstructure:"date"` // wait_until, YYYY-MM-DD
	Time      string `mapstructure:"time"` // wait_until, HH:MM, UTC
}

type waitConfig struct {
	EventType    string `mapstructure:"event_type"`
	TimeoutHours int64  `mapstructure:"timeout_hours"`
}

// suspend persists the durable suspension record for a delay or
// wait-for-event node. The caller marks the execution waiting once the walk
// drains; the edges of the node are resolved later by the resume loop.
func (e *Engine) suspend(ctx context.Context, execution *models.Execution, node models.Node) error {
	suspension := &models.DelaySuspension{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		NodeID:      node.ID,
		Status:      models.SuspensionStatusWaiting,
		CreatedAt:   e.now(),
	}

	switch node.Kind {
	case models.NodeKindDelay:
		var config delayConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDelayConfig, err)
		}

		resumeAt, kind, err := computeResumeAt(e.now(), config)
		if err != nil {
			return err
		}

		suspension.Kind = kind
		suspension.ResumeAt = &resumeAt

	case models.NodeKindWaitForEvent:
		var config waitConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return fmt.Errorf("invalid wait_for_event config: %w", err)
		}

		if config.TimeoutHours <= 0 {
			config.TimeoutHours = DefaultWaitTimeoutHours
		}

		timeoutAt := e.now().Add(time.Duration(config.TimeoutHours) * time.Hour)
		suspension.Kind = models.SuspensionKindWaitForEvent
		suspension.WaitEventType = config.EventType
		suspension.TimeoutAt = &timeoutAt

	default:
		return fmt.Errorf("%w: node kind %s cannot suspend", ErrInvalidDelayConfig, node.Kind)
	}

	if err := e.store.SuspensionRepository().Save(ctx, suspension); err != nil {
		return fmt.Errorf("failed to save suspension: %w", err)
	}

	e.publish(ctx, execution.WorkflowID, events.ExecutionSuspended{
		BaseEvent:    e.newEvent(events.ExecutionSuspendedEvent, execution.WorkflowID),
		ExecutionID:  execution.ID,
		NodeID:       node.ID,
		SuspensionID: suspension.ID,
		Kind:         string(suspension.Kind),
		ResumeAt:     suspension.ResumeAt,
	})

	e.logger.InfoContext(ctx, "Execution suspended",
		"execution_id", execution.ID, "node_id", node.ID,
		"kind", string(suspension.Kind), "resume_at", suspension.ResumeAt)

	return nil
}

// computeResumeAt turns a delay config into an absolute resume time. Relative
// delays use exact duration arithmetic; wait_until combines a UTC date and
// optional HH:MM time of day.
func computeResumeAt(now time.Time, config delayConfig) (time.Time, models.SuspensionKind, error) {
	switch config.DelayType {
	case "", "time_delay":
		unit, err := delayUnit(config.Unit)
		if err != nil {
			return time.Time{}, "", err
		}

		if config.Amount <= 0 {
			return time.Time{}, "", fmt.Errorf("%w: amount must be positive", ErrInvalidDelayConfig)
		}

		return now.Add(time.Duration(config.Amount) * unit), models.SuspensionKindTimeDelay, nil

	case "wait_until":
		if config.Date == "" {
			return time.Time{}, "", fmt.Errorf("%w: wait_until requires a date", ErrInvalidDelayConfig)
		}

		clock := config.Time
		if clock == "" {
			clock = "00:00"
		}

		resumeAt, err := time.Parse("2006-01-02 15:04", config.Date+" "+clock)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidDelayConfig, err)
		}

		return resumeAt.UTC(), models.SuspensionKindWaitUntil, nil

	default:
		return time.Time{}, "", fmt.Errorf("%w: unknown delay_type %q", ErrInvalidDelayConfig, config.DelayType)
	}
}

func delayUnit(unit string) (time.Duration, error) {
	switch unit {
	case "minutes":
		return time.Minute, nil
	case "hours":
		return time.Hour, nil
	case "days":
		return 24 * time.Hour, nil
	case "weeks":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDelayConfig, unit)
	}
}
