package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/services"
)

// APIHandlers groups the HTTP handlers over the service layer.
type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	scheduleService  *services.Schedule
	statsService     *services.Stats
	validator        *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	scheduleService *services.Schedule,
	statsService *services.Stats,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		scheduleService:  scheduleService,
		statsService:     statsService,
		validator:        validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	var status *models.WorkflowStatus

	if statusStr := c.Query("status"); statusStr != "" {
		s := models.WorkflowStatus(statusStr)
		status = &s
	}

	workflows, err := h.workflowService.List(c.Context(), status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Variables:   req.Variables,
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// EnqueueExecution is the single entry point through which executions come
// into existence.
func (h *APIHandlers) EnqueueExecution(c fiber.Ctx) error {
	var req EnqueueExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionID, err := h.executionService.Enqueue(c.Context(), req.WorkflowID, req.TriggerPayload())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": executionID,
		"status":       string(models.ExecutionStatusPending),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionActions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	records, err := h.executionService.ActionRecords(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"actions": records})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetWorkflowStats(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	stats, err := h.statsService.ForWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) CreateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	schedule, err := h.scheduleService.Create(c.Context(), req.WorkflowID, req.CronExpression)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func (h *APIHandlers) GetSchedules(c fiber.Ctx) error {
	schedules, err := h.scheduleService.ListActive(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"schedules": schedules})
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	if err := h.scheduleService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
