package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// TagHandler adds or removes a tag on the execution's lead or contact via a
// read-modify-write of the tag list. Adds are deduplicated. When the
// execution references neither a lead nor a contact the handler is a silent
// no-op, matching the forgiving behavior of tag automations.
type TagHandler struct {
	crm capabilities.CRMStore
	add bool
	Tag string `mapstructure:"tag"`
}

func NewTagHandler(config map[string]any, crm capabilities.CRMStore, add bool) (*TagHandler, error) {
	handler := &TagHandler{crm: crm, add: add}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid tag config: %w", err)
	}

	return handler, nil
}

func (h *TagHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	entity, id := targetEntity(execCtx)
	if id == "" {
		logger.InfoContext(ctx, "No lead or contact on execution, skipping tag action", "tag", h.Tag)

		return map[string]any{"skipped": true}, nil
	}

	tags, err := h.crm.Tags(ctx, entity, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	if h.add {
		tags = addTag(tags, h.Tag)
	} else {
		tags = removeTag(tags, h.Tag)
	}

	if err := h.crm.SetTags(ctx, entity, id, tags); err != nil {
		return nil, fmt.Errorf("failed to write tags: %w", err)
	}

	return map[string]any{"tag": h.Tag, "entity": string(entity), "entity_id": id}, nil
}

// targetEntity resolves the entity a CRM mutation applies to, preferring the
// lead reference over the contact.
func targetEntity(execCtx *models.ExecutionContext) (capabilities.EntityType, string) {
	if execCtx.LeadID != "" {
		return capabilities.EntityTypeLead, execCtx.LeadID
	}

	if execCtx.ContactID != "" {
		return capabilities.EntityTypeContact, execCtx.ContactID
	}

	return "", ""
}

func addTag(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}

	return append(tags, tag)
}

func removeTag(tags []string, tag string) []string {
	out := tags[:0]

	for _, t := range tags {
		if !strings.EqualFold(t, tag) {
			out = append(out, t)
		}
	}

	return out
}
