package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/template"
	"github.com/mitchellh/mapstructure"
)

// ErrNoPhoneNumber is returned when a send_sms node runs for an execution
// without a phone number.
var ErrNoPhoneNumber = errors.New("execution has no phone number")

// SendSMSHandler dispatches a text message through the SMS capability.
type SendSMSHandler struct {
	sender capabilities.SMSSender
	Body   string `mapstructure:"body"`
	To     string `mapstructure:"to"`
}

func NewSendSMSHandler(config map[string]any, sender capabilities.SMSSender) (*SendSMSHandler, error) {
	handler := &SendSMSHandler{sender: sender}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid send_sms config: %w", err)
	}

	return handler, nil
}

func (h *SendSMSHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	to := h.To
	if to == "" {
		to = execCtx.PhoneNumber
	}

	if to == "" {
		return nil, ErrNoPhoneNumber
	}

	body, err := template.RenderWithContext(h.Body, execCtx)
	if err != nil {
		return nil, fmt.Errorf("invalid body template: %w", err)
	}

	messageID, err := h.sender.Send(ctx, to, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send sms: %w", err)
	}

	logger.InfoContext(ctx, "SMS sent", "to", to, "message_id", messageID)

	return map[string]any{"message_id": messageID, "to": to}, nil
}
