package conditions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// Evaluator answers true/false for condition nodes. Field lookups read the
// execution context first (trigger data, variables), then the CRM records the
// execution references.
type Evaluator struct {
	crm capabilities.CRMStore
	now func() time.Time
}

// NewEvaluator creates an evaluator backed by the given CRM store.
func NewEvaluator(crm capabilities.CRMStore) *Evaluator {
	return &Evaluator{
		crm: crm,
		now: time.Now,
	}
}

// WithClock overrides the time source, for time-based condition tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now

	return e
}

type fieldCompareConfig struct {
	Field    string `mapstructure:"field"`
	Operator string `mapstructure:"operator"`
	Value    any    `mapstructure:"value"`
}

type multiFieldConfig struct {
	Logic      string               `mapstructure:"logic"`
	Conditions []fieldCompareConfig `mapstructure:"conditions"`
}

type hasTagConfig struct {
	Tag string `mapstructure:"tag"`
}

type emailEventConfig struct {
	EventType string `mapstructure:"event_type"`
}

type timeBasedConfig struct {
	DaysOfWeek []string `mapstructure:"days_of_week"`
	After      string   `mapstructure:"after"`
	Before     string   `mapstructure:"before"`
}

// Evaluate dispatches on the condition_type declared in the node config.
// Unknown kinds log a warning and evaluate to true so that newer authoring
// tooling does not break older engines.
func (e *Evaluator) Evaluate(ctx context.Context, node models.Node, execCtx *models.ExecutionContext, logger *slog.Logger) (bool, error) {
	kind, _ := node.Config["condition_type"].(string)

	switch models.ConditionKind(kind) {
	case models.ConditionKindFieldCompare:
		var config fieldCompareConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid field_compare config: %w", err)
		}

		left := e.resolveField(ctx, config.Field, execCtx)

		return Compare(left, models.Operator(config.Operator), config.Value), nil

	case models.ConditionKindMultiField:
		var config multiFieldConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid multi_field config: %w", err)
		}

		return e.evaluateMultiField(ctx, config, execCtx), nil

	case models.ConditionKindHasTag:
		var config hasTagConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid has_tag config: %w", err)
		}

		return e.hasTag(ctx, config.Tag, execCtx), nil

	case models.ConditionKindEmailEvent:
		var config emailEventConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid email_event config: %w", err)
		}

		if execCtx.ContactID == "" {
			return false, nil
		}

		return e.crm.EmailEventStatus(ctx, execCtx.ContactID, config.EventType)

	case models.ConditionKindLeadScore:
		var config fieldCompareConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid lead_score config: %w", err)
		}

		return e.leadScore(ctx, config, execCtx), nil

	case models.ConditionKindTimeBased:
		var config timeBasedConfig
		if err := mapstructure.Decode(node.Config, &config); err != nil {
			return false, fmt.Errorf("invalid time_based config: %w", err)
		}

		return e.timeBased(config), nil

	case models.ConditionKindCustom:
		// Always-true placeholder: custom logic is an authoring-side extension
		// point with no engine-side rule language.
		return true, nil

	default:
		logger.WarnContext(ctx, "Unknown condition type, defaulting to true",
			"condition_type", kind, "node_id", node.ID)

		return true, nil
	}
}

func (e *Evaluator) evaluateMultiField(ctx context.Context, config multiFieldConfig, execCtx *models.ExecutionContext) bool {
	if len(config.Conditions) == 0 {
		return true
	}

	anyMode := strings.EqualFold(config.Logic, "or")

	for _, cond := range config.Conditions {
		left := e.resolveField(ctx, cond.Field, execCtx)
		result := Compare(left, models.Operator(cond.Operator), cond.Value)

		if anyMode && result {
			return true
		}

		if !anyMode && !result {
			return false
		}
	}

	return !anyMode
}

func (e *Evaluator) hasTag(ctx context.Context, tag string, execCtx *models.ExecutionContext) bool {
	var (
		tags []string
		err  error
	)

	switch {
	case execCtx.LeadID != "":
		tags, err = e.crm.Tags(ctx, capabilities.EntityTypeLead, execCtx.LeadID)
	case execCtx.ContactID != "":
		tags, err = e.crm.Tags(ctx, capabilities.EntityTypeContact, execCtx.ContactID)
	default:
		return false
	}

	if err != nil {
		return false
	}

	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}

	return false
}

func (e *Evaluator) leadScore(ctx context.Context, config fieldCompareConfig, execCtx *models.ExecutionContext) bool {
	if execCtx.LeadID == "" {
		return false
	}

	lead, err := e.crm.GetLead(ctx, execCtx.LeadID)
	if err != nil {
		return false
	}

	return Compare(lead.Score, models.Operator(config.Operator), config.Value)
}

// timeBased checks day-of-week and a time-of-day window. Empty constraints
// match everything.
func (e *Evaluator) timeBased(config timeBasedConfig) bool {
	now := e.now().UTC()

	if len(config.DaysOfWeek) > 0 {
		day := strings.ToLower(now.Weekday().String())
		matched := false

		for _, d := range config.DaysOfWeek {
			if strings.ToLower(d) == day {
				matched = true

				break
			}
		}

		if !matched {
			return false
		}
	}

	clock := now.Format("15:04")

	if config.After != "" && clock < config.After {
		return false
	}

	if config.Before != "" && clock >= config.Before {
		return false
	}

	return true
}

// resolveField finds a named value for comparison: trigger data and variables
// first, then contact and lead fields loaded from the CRM. A missing field
// resolves to nil, which the operator set treats as empty.
func (e *Evaluator) resolveField(ctx context.Context, field string, execCtx *models.ExecutionContext) any {
	if value, ok := execCtx.TriggerData[field]; ok {
		return value
	}

	if value, ok := execCtx.Variables[field]; ok {
		return value
	}

	if execCtx.ContactID != "" {
		if contact, err := e.crm.GetContact(ctx, execCtx.ContactID); err == nil {
			if value, ok := contact.Fields[field]; ok {
				return value
			}
		}
	}

	if execCtx.LeadID != "" {
		if lead, err := e.crm.GetLead(ctx, execCtx.LeadID); err == nil {
			if value, ok := lead.Fields[field]; ok {
				return value
			}
		}
	}

	return nil
}
