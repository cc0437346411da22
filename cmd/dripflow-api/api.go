// Package main provides the dripflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/persistence"
	"github.com/dripflow/dripflow/pkg/services"
	"github.com/dripflow/dripflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	enqueuer    actions.Enqueuer
	validate    *validator.Validate
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, enqueuer actions.Enqueuer) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		enqueuer:    enqueuer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence)
	executionService := services.NewExecution(a.persistence, a.enqueuer)
	scheduleService := services.NewSchedule(a.persistence)
	statsService := services.NewStats(a.persistence)

	handlers := web.NewAPIHandlers(workflowService, executionService, scheduleService, statsService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("dripflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/archive", handlers.ArchiveWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)
	w.Get("/:id/stats", handlers.GetWorkflowStats)

	e := app.Group("/executions")
	e.Post("/", handlers.EnqueueExecution)
	e.Get("/:id", handlers.GetExecution)
	e.Get("/:id/actions", handlers.GetExecutionActions)

	s := app.Group("/schedules")
	s.Post("/", handlers.CreateSchedule)
	s.Get("/", handlers.GetSchedules)
	s.Delete("/:id", handlers.DeleteSchedule)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
