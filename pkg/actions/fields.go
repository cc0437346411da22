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

// ErrNoTargetEntity is returned when a field mutation cannot resolve a lead or
// contact to apply to.
var ErrNoTargetEntity = errors.New("no lead or contact id on execution")

// UpdateFieldHandler sets a single named field on the execution's lead or
// contact.
type UpdateFieldHandler struct {
	crm capabilities.CRMStore
	// EntityType forces the target ("lead" or "contact"); empty picks from the
	// execution context, lead first.
	EntityType string `mapstructure:"entity_type"`
	Field      string `mapstructure:"field"`
	Value      any    `mapstructure:"value"`
}

func NewUpdateFieldHandler(config map[string]any, crm capabilities.CRMStore) (*UpdateFieldHandler, error) {
	handler := &UpdateFieldHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid update_field config: %w", err)
	}

	if handler.Field == "" {
		return nil, errors.New("missing required field 'field'")
	}

	return handler, nil
}

func (h *UpdateFieldHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	entity, id := targetEntity(execCtx)

	switch capabilities.EntityType(h.EntityType) {
	case capabilities.EntityTypeLead:
		entity, id = capabilities.EntityTypeLead, execCtx.LeadID
	case capabilities.EntityTypeContact:
		entity, id = capabilities.EntityTypeContact, execCtx.ContactID
	case capabilities.EntityTypeOpportunity:
	}

	if id == "" {
		return nil, ErrNoTargetEntity
	}

	var err error

	switch entity {
	case capabilities.EntityTypeLead:
		err = h.crm.UpdateLeadField(ctx, id, h.Field, h.Value)
	case capabilities.EntityTypeContact:
		err = h.crm.UpdateContactField(ctx, id, h.Field, h.Value)
	case capabilities.EntityTypeOpportunity:
		err = fmt.Errorf("unsupported entity type for field update: %s", entity)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update field %q: %w", h.Field, err)
	}

	logger.InfoContext(ctx, "Field updated", "entity", string(entity), "entity_id", id, "field", h.Field)

	return map[string]any{"entity": string(entity), "entity_id": id, "field": h.Field}, nil
}
