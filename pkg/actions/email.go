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

// ErrNoEmailAddress is returned when a send_email node runs for an execution
// without an email address.
var ErrNoEmailAddress = errors.New("execution has no email address")

// SendEmailHandler dispatches an email through the email capability.
type SendEmailHandler struct {
	sender  capabilities.EmailSender
	Subject string `mapstructure:"subject"`
	Body    string `mapstructure:"body"`
	// TemplateID selects a provider-side template; body is ignored when set.
	TemplateID string `mapstructure:"template_id"`
	// To overrides the execution's email address when present.
	To string `mapstructure:"to"`
}

func NewSendEmailHandler(config map[string]any, sender capabilities.EmailSender) (*SendEmailHandler, error) {
	handler := &SendEmailHandler{sender: sender}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid send_email config: %w", err)
	}

	return handler, nil
}

func (h *SendEmailHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	to := h.To
	if to == "" {
		to = execCtx.EmailAddress
	}

	if to == "" {
		return nil, ErrNoEmailAddress
	}

	subject, err := template.RenderWithContext(h.Subject, execCtx)
	if err != nil {
		return nil, fmt.Errorf("invalid subject template: %w", err)
	}

	body, err := template.RenderWithContext(h.Body, execCtx)
	if err != nil {
		return nil, fmt.Errorf("invalid body template: %w", err)
	}

	messageID, err := h.sender.Send(ctx, capabilities.EmailMessage{
		To:         to,
		Subject:    subject,
		Body:       body,
		TemplateID: h.TemplateID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "message_id", messageID)

	return map[string]any{"message_id": messageID, "to": to}, nil
}
