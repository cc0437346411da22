// Package actions implements one handler per workflow action kind. Handlers
// perform the external side effect and return a result payload; failures are
// reported as errors and recorded by the caller without halting the walk.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/models"
)

// ErrStopWorkflow is the distinguished signal raised by the stop_workflow
// action. It is not a failure: the interpreter catches it and terminates the
// execution with the stopped status.
var ErrStopWorkflow = errors.New("workflow stopped")

// ErrUnknownActionKind is returned when dispatch meets an action kind outside
// the closed set.
var ErrUnknownActionKind = errors.New("unknown action kind")

// Enqueuer creates new pending executions; the trigger_workflow action uses it
// to start sub-workflows.
type Enqueuer interface {
	Enqueue(ctx context.Context, workflowID string, trigger models.TriggerPayload) (string, error)
}

// Dependencies bundles the capability services handlers call. One instance is
// built at process start and shared by every execution.
type Dependencies struct {
	Email      capabilities.EmailSender
	SMS        capabilities.SMSSender
	CRM        capabilities.CRMStore
	Calendar   capabilities.CalendarService
	HTTPClient *http.Client
	Enqueuer   Enqueuer
}

// Handler executes one action against the execution context. Handlers may
// mutate the context (create_contact sets ContactID for downstream nodes).
type Handler interface {
	Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// NewHandler builds the handler for an action kind from its node config. The
// switch is exhaustive over models.ActionKind; a new kind is a compile-visible
// addition here.
func NewHandler(kind models.ActionKind, config map[string]any, deps Dependencies) (Handler, error) {
	switch kind {
	case models.ActionKindSendEmail:
		return NewSendEmailHandler(config, deps.Email)
	case models.ActionKindSendSMS:
		return NewSendSMSHandler(config, deps.SMS)
	case models.ActionKindAddTag:
		return NewTagHandler(config, deps.CRM, true)
	case models.ActionKindRemoveTag:
		return NewTagHandler(config, deps.CRM, false)
	case models.ActionKindUpdateField:
		return NewUpdateFieldHandler(config, deps.CRM)
	case models.ActionKindCreateTask:
		return NewCreateTaskHandler(config, deps.CRM)
	case models.ActionKindCreateContact:
		return NewCreateContactHandler(config, deps.CRM)
	case models.ActionKindCreateOpportunity:
		return NewCreateOpportunityHandler(config, deps.CRM)
	case models.ActionKindUpdateOpportunity:
		return NewUpdateOpportunityHandler(config, deps.CRM, "")
	case models.ActionKindMoveOpportunityStage:
		return NewMoveOpportunityStageHandler(config, deps.CRM)
	case models.ActionKindUpdateLeadScore:
		return NewUpdateLeadScoreHandler(config, deps.CRM)
	case models.ActionKindAssignToUser:
		return NewAssignToUserHandler(config, deps.CRM)
	case models.ActionKindNotification:
		return NewNotificationHandler(config, deps.CRM)
	case models.ActionKindWebhook:
		return NewWebhookHandler(config, deps.HTTPClient)
	case models.ActionKindCalendarEvent:
		return NewCalendarEventHandler(config, deps.Calendar)
	case models.ActionKindTriggerWorkflow:
		return NewTriggerWorkflowHandler(config, deps.Enqueuer)
	case models.ActionKindStopWorkflow:
		return NewStopWorkflowHandler(config)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionKind, kind)
	}
}

// ParseKind extracts the action kind from a node config.
func ParseKind(config map[string]any) models.ActionKind {
	kind, _ := config["action_type"].(string)

	return models.ActionKind(kind)
}
