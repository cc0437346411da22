package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// AssignToUserHandler sets the assignee on the execution's lead or contact.
type AssignToUserHandler struct {
	crm    capabilities.CRMStore
	UserID string `mapstructure:"user_id"`
}

func NewAssignToUserHandler(config map[string]any, crm capabilities.CRMStore) (*AssignToUserHandler, error) {
	handler := &AssignToUserHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid assign_to_user config: %w", err)
	}

	if handler.UserID == "" {
		return nil, errors.New("missing required field 'user_id'")
	}

	return handler, nil
}

func (h *AssignToUserHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	entity, id := targetEntity(execCtx)
	if id == "" {
		return nil, ErrNoTargetEntity
	}

	if err := h.crm.Assign(ctx, entity, id, h.UserID); err != nil {
		return nil, fmt.Errorf("failed to assign %s: %w", entity, err)
	}

	logger.InfoContext(ctx, "Assigned to user", "entity", string(entity), "entity_id", id, "user_id", h.UserID)

	return map[string]any{"entity": string(entity), "entity_id": id, "user_id": h.UserID}, nil
}

// NotificationHandler inserts an internal notification row for a recipient
// user.
type NotificationHandler struct {
	crm         capabilities.CRMStore
	RecipientID string `mapstructure:"recipient_id"`
	Title       string `mapstructure:"title"`
	Body        string `mapstructure:"body"`
}

func NewNotificationHandler(config map[string]any, crm capabilities.CRMStore) (*NotificationHandler, error) {
	handler := &NotificationHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid internal_notification config: %w", err)
	}

	return handler, nil
}

func (h *NotificationHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	notificationID, err := h.crm.CreateNotification(ctx, &capabilities.Notification{
		RecipientID: h.RecipientID,
		Title:       h.Title,
		Body:        h.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	logger.InfoContext(ctx, "Notification created", "notification_id", notificationID, "recipient_id", h.RecipientID)

	return map[string]any{"notification_id": notificationID}, nil
}
