// Package engine implements the workflow execution runtime: the graph
// interpreter, the delay/resume scheduler, the split-test allocator and the
// polling loops that drive them.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/conditions"
	"github.com/dripflow/dripflow/pkg/eventbus"
	"github.com/dripflow/dripflow/pkg/metrics"
	"github.com/dripflow/dripflow/pkg/persistence"
)

// Default polling intervals. New executions are picked up fast; delayed
// resumes and goal scans tolerate more latency; scheduled triggers are
// minute-granular anyway.
const (
	DefaultPendingInterval  = 3 * time.Second
	DefaultResumeInterval   = 10 * time.Second
	DefaultGoalInterval     = 15 * time.Second
	DefaultScheduleInterval = 60 * time.Second
	DefaultBatchSize        = 50
)

// Config carries the tunables of one engine instance.
type Config struct {
	EngineID         string
	PendingInterval  time.Duration
	ResumeInterval   time.Duration
	GoalInterval     time.Duration
	ScheduleInterval time.Duration
	BatchSize        int
}

func (c Config) withDefaults() Config {
	if c.PendingInterval <= 0 {
		c.PendingInterval = DefaultPendingInterval
	}

	if c.ResumeInterval <= 0 {
		c.ResumeInterval = DefaultResumeInterval
	}

	if c.GoalInterval <= 0 {
		c.GoalInterval = DefaultGoalInterval
	}

	if c.ScheduleInterval <= 0 {
		c.ScheduleInterval = DefaultScheduleInterval
	}

	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	return c
}

// Engine is the long-lived execution service. One instance per process; all
// dependencies are injected, nothing is process-global.
type Engine struct {
	config      Config
	logger      *slog.Logger
	store       persistence.Persistence
	deps        actions.Dependencies
	evaluator   *conditions.Evaluator
	eventBus    eventbus.EventPublisher
	loopMetrics *metrics.LoopMetrics
	tracer      trace.Tracer

	// counters is the analytics backend. Defaults to the persistence layer's
	// daily counters; deployments with several engine instances swap in the
	// Redis implementation.
	counters persistence.MetricsRepository

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Injectable for deterministic tests.
	now  func() time.Time
	draw func() float64 // uniform in [0, 100)
}

// New creates an engine. The engine registers itself as the Enqueuer for
// trigger_workflow actions unless the caller provided one.
func New(config Config, logger *slog.Logger, store persistence.Persistence, deps actions.Dependencies, evaluator *conditions.Evaluator) *Engine {
	e := &Engine{
		config:    config.withDefaults(),
		logger:    logger.With("module", "engine"),
		store:     store,
		deps:      deps,
		evaluator: evaluator,
		tracer:    noop.NewTracerProvider().Tracer("dripflow"),
		counters:  store.MetricsRepository(),
		now:       func() time.Time { return time.Now().UTC() },
		draw:      func() float64 { return rand.Float64() * 100 },
	}

	if e.deps.Enqueuer == nil {
		e.deps.Enqueuer = e
	}

	return e
}

// WithEventBus attaches a lifecycle event publisher.
func (e *Engine) WithEventBus(bus eventbus.EventPublisher) *Engine {
	e.eventBus = bus

	return e
}

// WithCounters overrides the analytics counter backend.
func (e *Engine) WithCounters(counters persistence.MetricsRepository) *Engine {
	e.counters = counters

	return e
}

// WithTracer attaches a tracer for per-execution spans.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// WithLoopMetrics attaches Prometheus loop instrumentation.
func (e *Engine) WithLoopMetrics(m *metrics.LoopMetrics) *Engine {
	e.loopMetrics = m

	return e
}

// WithClock overrides the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now

	return e
}

// WithDraw overrides the split-test random source. The function must return a
// uniform value in [0, 100).
func (e *Engine) WithDraw(draw func() float64) *Engine {
	e.draw = draw

	return e
}

// Start launches the four polling loops. Idempotent: calling Start on a
// running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.InfoContext(ctx, "Engine already running")

		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.logger.InfoContext(ctx, "Starting engine",
		"engine_id", e.config.EngineID,
		"pending_interval", e.config.PendingInterval,
		"resume_interval", e.config.ResumeInterval,
		"goal_interval", e.config.GoalInterval,
		"schedule_interval", e.config.ScheduleInterval)

	e.runLoop(loopCtx, "pending", e.config.PendingInterval, e.processPending)
	e.runLoop(loopCtx, "resume", e.config.ResumeInterval, e.processResumes)
	e.runLoop(loopCtx, "goals", e.config.GoalInterval, e.processGoals)
	e.runLoop(loopCtx, "schedules", e.config.ScheduleInterval, e.processSchedules)
}

// Stop signals every loop to exit after its current iteration and waits for
// them to finish.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.cancel()
	e.wg.Wait()
	e.logger.Info("Engine stopped", "engine_id", e.config.EngineID)
}

// Running reports whether the loops are active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// runLoop runs one named tick function at the given interval until the
// context is cancelled. A tick error is logged and the loop retries on its
// next tick; only per-item errors inside the tick are isolated by the tick
// functions themselves.
func (e *Engine) runLoop(ctx context.Context, name string, interval time.Duration, tick func(ctx context.Context) error) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger := e.logger.With("loop", name)
		logger.InfoContext(ctx, "Loop started", "interval", interval)

		for {
			select {
			case <-ctx.Done():
				logger.Info("Loop stopped")

				return
			case <-ticker.C:
				started := time.Now()

				if err := tick(ctx); err != nil {
					logger.ErrorContext(ctx, "Loop tick failed", "error", err)
				}

				if e.loopMetrics != nil {
					e.loopMetrics.TickDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
				}
			}
		}
	}()
}
