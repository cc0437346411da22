package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/capabilities/memory"
	"github.com/dripflow/dripflow/pkg/cmd"
	"github.com/dripflow/dripflow/pkg/conditions"
	"github.com/dripflow/dripflow/pkg/engine"
	"github.com/dripflow/dripflow/pkg/log"
	"github.com/dripflow/dripflow/pkg/metrics"
	"github.com/dripflow/dripflow/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "dripflow-engine",
		EnableShellCompletion: true,
		Usage:                 "Start the workflow execution engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
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
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared analytics counters (optional)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port for the Prometheus metrics endpoint (0 disables)",
				Value:   9090,
				Sources: cli.EnvVars("METRICS_PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	engineID := command.String("engine-id")
	if engineID == "" {
		engineID = "engine-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("dripflow-engine").With("engine_id", engineID)
	logger.InfoContext(ctx, "Initializing dripflow engine")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "dripflow-engine", logger)
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

	// The in-memory capability services stand in until real CRM and delivery
	// providers are configured. They keep a single-binary deployment usable
	// for development and evaluation.
	crm := memory.NewCRMStore()
	deps := actions.Dependencies{
		Email:      memory.NewEmailSender(),
		SMS:        memory.NewSMSSender(),
		CRM:        crm,
		Calendar:   memory.NewCalendarService(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	eng := engine.New(engine.Config{EngineID: engineID}, logger, store, deps, conditions.NewEvaluator(crm))

	if eventBus != nil {
		eng.WithEventBus(eventBus)
	}

	if redisURL := command.String("redis-url"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return err
		}

		eng.WithCounters(metrics.NewRedisCounters(redis.NewClient(opts)))
		logger.InfoContext(ctx, "Using Redis analytics counters")
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "dripflow-engine")
		if err != nil {
			return err
		}

		eng.WithTracer(tracer)
	}

	if port := command.Int("metrics-port"); port > 0 {
		eng.WithLoopMetrics(metrics.NewLoopMetrics(prometheus.DefaultRegisterer))
		go serveMetrics(logger, int(port))
	}

	eng.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.InfoContext(ctx, "Shutting down")
	eng.Stop()

	return nil
}

func serveMetrics(logger *slog.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", "error", err)
	}
}
