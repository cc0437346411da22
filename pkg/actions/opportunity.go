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

// ErrNoOpportunityID is returned when an opportunity mutation cannot resolve a
// target id from config or context.
var ErrNoOpportunityID = errors.New("no opportunity id resolvable")

// UpdateOpportunityHandler applies a partial update to an opportunity. The
// target id comes from config or, failing that, the execution context.
type UpdateOpportunityHandler struct {
	crm           capabilities.CRMStore
	OpportunityID string         `mapstructure:"opportunity_id"`
	Fields        map[string]any `mapstructure:"fields"`

	// forcedStage is set by the move_opportunity_stage variant.
	forcedStage string
}

func NewUpdateOpportunityHandler(config map[string]any, crm capabilities.CRMStore, forcedStage string) (*UpdateOpportunityHandler, error) {
	handler := &UpdateOpportunityHandler{crm: crm, forcedStage: forcedStage}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid update_opportunity config: %w", err)
	}

	return handler, nil
}

// NewMoveOpportunityStageHandler builds the stage-move variant: a partial
// update restricted to the stage field.
func NewMoveOpportunityStageHandler(config map[string]any, crm capabilities.CRMStore) (*UpdateOpportunityHandler, error) {
	stage, _ := config["stage"].(string)
	if stage == "" {
		return nil, errors.New("missing required field 'stage'")
	}

	return NewUpdateOpportunityHandler(config, crm, stage)
}

func (h *UpdateOpportunityHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	opportunityID := h.OpportunityID
	if opportunityID == "" {
		opportunityID = execCtx.OpportunityID
	}

	if opportunityID == "" {
		return nil, ErrNoOpportunityID
	}

	fields := make(map[string]any, len(h.Fields)+1)
	for k, v := range h.Fields {
		fields[k] = v
	}

	if h.forcedStage != "" {
		fields["stage"] = h.forcedStage
	}

	if err := h.crm.UpdateOpportunity(ctx, opportunityID, fields); err != nil {
		return nil, fmt.Errorf("failed to update opportunity: %w", err)
	}

	logger.InfoContext(ctx, "Opportunity updated", "opportunity_id", opportunityID)

	return map[string]any{"opportunity_id": opportunityID}, nil
}
