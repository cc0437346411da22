package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// CalendarEventHandler delegates event creation to the calendar capability.
type CalendarEventHandler struct {
	calendar        capabilities.CalendarService
	Title           string `mapstructure:"title"`
	StartsAt        string `mapstructure:"starts_at"` // RFC 3339
	DurationMinutes int    `mapstructure:"duration_minutes"`
}

func NewCalendarEventHandler(config map[string]any, calendar capabilities.CalendarService) (*CalendarEventHandler, error) {
	handler := &CalendarEventHandler{calendar: calendar}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid create_calendar_event config: %w", err)
	}

	return handler, nil
}

func (h *CalendarEventHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	startsAt := time.Now().UTC()

	if h.StartsAt != "" {
		parsed, err := time.Parse(time.RFC3339, h.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("invalid starts_at: %w", err)
		}

		startsAt = parsed
	}

	duration := time.Duration(h.DurationMinutes) * time.Minute
	if duration == 0 {
		duration = 30 * time.Minute
	}

	eventID, err := h.calendar.CreateEvent(ctx, &capabilities.CalendarEvent{
		Title:     h.Title,
		ContactID: execCtx.ContactID,
		StartsAt:  startsAt,
		Duration:  duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	logger.InfoContext(ctx, "Calendar event created", "event_id", eventID)

	return map[string]any{"event_id": eventID}, nil
}
