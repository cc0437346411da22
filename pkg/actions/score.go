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

// ErrNoLeadID is returned when a lead score mutation runs without a lead
// reference.
var ErrNoLeadID = errors.New("no lead id on execution")

// UpdateLeadScoreHandler applies set/add/subtract arithmetic to the stored
// lead score.
type UpdateLeadScoreHandler struct {
	crm       capabilities.CRMStore
	Operation string  `mapstructure:"operation"`
	Value     float64 `mapstructure:"value"`
}

func NewUpdateLeadScoreHandler(config map[string]any, crm capabilities.CRMStore) (*UpdateLeadScoreHandler, error) {
	handler := &UpdateLeadScoreHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid update_lead_score config: %w", err)
	}

	switch handler.Operation {
	case "set", "add", "subtract":
	case "":
		handler.Operation = "set"
	default:
		return nil, fmt.Errorf("unknown score operation: %s", handler.Operation)
	}

	return handler, nil
}

func (h *UpdateLeadScoreHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	if execCtx.LeadID == "" {
		return nil, ErrNoLeadID
	}

	lead, err := h.crm.GetLead(ctx, execCtx.LeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}

	score := lead.Score

	switch h.Operation {
	case "set":
		score = h.Value
	case "add":
		score += h.Value
	case "subtract":
		score -= h.Value
	}

	if err := h.crm.UpdateLeadScore(ctx, execCtx.LeadID, score); err != nil {
		return nil, fmt.Errorf("failed to update lead score: %w", err)
	}

	logger.InfoContext(ctx, "Lead score updated", "lead_id", execCtx.LeadID, "score", score)

	return map[string]any{"lead_id": execCtx.LeadID, "score": score}, nil
}
