package main

import (
	"context"
	"net/http"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/capabilities/memory"
	"github.com/dripflow/dripflow/pkg/cmd"
	"github.com/dripflow/dripflow/pkg/conditions"
	"github.com/dripflow/dripflow/pkg/engine"
	"github.com/dripflow/dripflow/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "dripflow-api",
		Usage:                 "Serve the workflow authoring and execution API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger.InfoContext(ctx, "Initializing dripflow API")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "dripflow-api", logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			// An unstarted engine serves as the enqueuer: it validates the
			// workflow and payload and writes the pending row. The polling
			// loops run in the dripflow-engine process against the same store.
			crm := memory.NewCRMStore()
			deps := actions.Dependencies{
				Email:      memory.NewEmailSender(),
				SMS:        memory.NewSMSSender(),
				CRM:        crm,
				Calendar:   memory.NewCalendarService(),
				HTTPClient: &http.Client{Timeout: 30 * time.Second},
			}

			enqueuer := engine.New(engine.Config{EngineID: "api"}, logger, store, deps, conditions.NewEvaluator(crm))
			if eventBus != nil {
				enqueuer.WithEventBus(eventBus)
			}

			api := NewAPI(logger, store, enqueuer)

			if err := api.Start(int(command.Int("port"))); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
