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

// CreateTaskHandler inserts a follow-up task linked to the execution's
// contact or lead.
type CreateTaskHandler struct {
	crm         capabilities.CRMStore
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	AssignTo    string `mapstructure:"assign_to"`
	DueInHours  int    `mapstructure:"due_in_hours"`
}

func NewCreateTaskHandler(config map[string]any, crm capabilities.CRMStore) (*CreateTaskHandler, error) {
	handler := &CreateTaskHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid create_task config: %w", err)
	}

	return handler, nil
}

func (h *CreateTaskHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	task := &capabilities.Task{
		Title:       h.Title,
		Description: h.Description,
		ContactID:   execCtx.ContactID,
		LeadID:      execCtx.LeadID,
		AssignedTo:  h.AssignTo,
	}

	if h.DueInHours > 0 {
		due := time.Now().UTC().Add(time.Duration(h.DueInHours) * time.Hour)
		task.DueAt = &due
	}

	taskID, err := h.crm.CreateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", taskID)

	return map[string]any{"task_id": taskID}, nil
}

// CreateContactHandler inserts a new contact and points the execution context
// at it so downstream nodes act on the created record.
type CreateContactHandler struct {
	crm    capabilities.CRMStore
	Email  string         `mapstructure:"email"`
	Phone  string         `mapstructure:"phone"`
	Fields map[string]any `mapstructure:"fields"`
}

func NewCreateContactHandler(config map[string]any, crm capabilities.CRMStore) (*CreateContactHandler, error) {
	handler := &CreateContactHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid create_contact config: %w", err)
	}

	return handler, nil
}

func (h *CreateContactHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	email := h.Email
	if email == "" {
		email = execCtx.EmailAddress
	}

	phone := h.Phone
	if phone == "" {
		phone = execCtx.PhoneNumber
	}

	contactID, err := h.crm.CreateContact(ctx, &capabilities.Contact{
		Email:  email,
		Phone:  phone,
		Fields: h.Fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	execCtx.ContactID = contactID

	logger.InfoContext(ctx, "Contact created", "contact_id", contactID)

	return map[string]any{"contact_id": contactID}, nil
}

// CreateOpportunityHandler inserts a new opportunity and points the execution
// context at it.
type CreateOpportunityHandler struct {
	crm   capabilities.CRMStore
	Name  string  `mapstructure:"name"`
	Stage string  `mapstructure:"stage"`
	Value float64 `mapstructure:"value"`
}

func NewCreateOpportunityHandler(config map[string]any, crm capabilities.CRMStore) (*CreateOpportunityHandler, error) {
	handler := &CreateOpportunityHandler{crm: crm}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid create_opportunity config: %w", err)
	}

	return handler, nil
}

func (h *CreateOpportunityHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	opportunityID, err := h.crm.CreateOpportunity(ctx, &capabilities.Opportunity{
		ContactID: execCtx.ContactID,
		LeadID:    execCtx.LeadID,
		Name:      h.Name,
		Stage:     h.Stage,
		Value:     h.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	execCtx.OpportunityID = opportunityID

	logger.InfoContext(ctx, "Opportunity created", "opportunity_id", opportunityID)

	return map[string]any{"opportunity_id": opportunityID}, nil
}
