package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dripflow/dripflow/pkg/actions"
	"github.com/dripflow/dripflow/pkg/eventbus"
	"github.com/dripflow/dripflow/pkg/events"
	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/otelhelper"
)

// ErrNoTriggerNode is the fatal authoring error raised when a workflow has no
// trigger node to start from.
var ErrNoTriggerNode = errors.New("workflow has no trigger node")

// walkOutcome is the terminal disposition of one graph walk.
type walkOutcome int

const (
	walkCompleted walkOutcome = iota
	walkWaiting
	walkStopped
)

// runExecution interprets a freshly claimed execution from its trigger node.
// Any error returned here has already been recorded on the execution row.
func (e *Engine) runExecution(ctx context.Context, execution *models.Execution) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run_execution",
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.EngineIDKey, e.config.EngineID))
	defer span.End()

	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	workflow, err := e.store.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.failExecution(ctx, execution, "", fmt.Errorf("failed to load workflow: %w", err))
	}

	if workflow == nil {
		return e.failExecution(ctx, execution, "", fmt.Errorf("workflow %s not found", execution.WorkflowID))
	}

	trigger, ok := workflow.TriggerNode()
	if !ok {
		return e.failExecution(ctx, execution, "", ErrNoTriggerNode)
	}

	e.publish(ctx, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent:   e.newEvent(events.ExecutionStartedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		ContactID:   execution.ContactID,
		LeadID:      execution.LeadID,
		TriggerData: execution.TriggerData,
	})

	execCtx := buildContext(workflow, execution)

	outcome, err := e.walk(ctx, workflow, execution, execCtx, []string{trigger.ID}, logger)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return e.finishWalk(ctx, execution, execCtx, outcome, err)
}

// resumeExecution re-enters the interpreter at the successors of a suspended
// node. The executed-node list accumulated before the suspension is durable,
// so upstream actions do not fire again.
func (e *Engine) resumeExecution(ctx context.Context, suspension *models.DelaySuspension) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.resume_execution",
		attribute.String(otelhelper.WorkflowIDKey, suspension.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, suspension.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, suspension.NodeID))
	defer span.End()

	logger := e.logger.With(
		"execution_id", suspension.ExecutionID,
		"workflow_id", suspension.WorkflowID,
		"node_id", suspension.NodeID)

	execution, err := e.store.ExecutionRepository().GetByID(ctx, suspension.ExecutionID)
	if err != nil {
		return fmt.Errorf("failed to load suspended execution: %w", err)
	}

	workflow, err := e.store.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.failExecution(ctx, execution, suspension.NodeID, fmt.Errorf("failed to load workflow: %w", err))
	}

	if workflow == nil {
		return e.failExecution(ctx, execution, suspension.NodeID, fmt.Errorf("workflow %s not found", execution.WorkflowID))
	}

	execution.Status = models.ExecutionStatusRunning
	if err := e.store.ExecutionRepository().Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	e.publish(ctx, execution.WorkflowID, events.ExecutionResumed{
		BaseEvent:    e.newEvent(events.ExecutionResumedEvent, execution.WorkflowID),
		ExecutionID:  execution.ID,
		NodeID:       suspension.NodeID,
		SuspensionID: suspension.ID,
	})

	execCtx := buildContext(workflow, execution)

	next := make([]string, 0)
	for _, edge := range models.OutgoingEdges(workflow.Edges, suspension.NodeID) {
		next = append(next, edge.TargetNodeID)
	}

	logger.InfoContext(ctx, "Resuming execution", "successors", len(next))

	outcome, err := e.walk(ctx, workflow, execution, execCtx, next, logger)

	return e.finishWalk(ctx, execution, execCtx, outcome, err)
}

// walk advances the execution over the graph with an explicit work list
// instead of recursion, which bounds stack depth on pathological graphs and
// keeps the cycle guard in one place.
//
// Routing rules by node kind:
//   - trigger, goal, unknown: fan out to every outgoing edge
//   - action: fan out, unless the handler raised the stop signal
//   - condition, split: exclusive branch, exactly one outgoing edge
//   - delay, wait_for_event: persist a suspension, follow no edges now
//   - exit: halt the entire walk
func (e *Engine) walk(ctx context.Context, workflow *models.Workflow, execution *models.Execution, execCtx *models.ExecutionContext, start []string, logger *slog.Logger) (walkOutcome, error) {
	stack := make([]string, len(start))
	copy(stack, start)

	suspended := false

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, ok := workflow.NodeByID(nodeID)
		if !ok {
			logger.WarnContext(ctx, "Edge points at missing node", "node_id", nodeID)

			continue
		}

		if execCtx.HasExecuted(node.ID) {
			logger.DebugContext(ctx, "Skipping already executed node", "node_id", node.ID)

			continue
		}

		execCtx.RecordExecuted(node.ID, node.Kind, e.now())
		execution.CurrentNodeID = node.ID

		switch node.Kind {
		case models.NodeKindTrigger:
			stack = pushTargets(stack, workflow.Edges, node.ID)

		case models.NodeKindAction:
			stopped, err := e.executeAction(ctx, workflow, execution, execCtx, node, logger)
			if err != nil {
				return walkCompleted, err
			}

			if stopped {
				return walkStopped, nil
			}

			stack = pushTargets(stack, workflow.Edges, node.ID)

		case models.NodeKindCondition:
			result, err := e.evaluator.Evaluate(ctx, node, execCtx, logger)
			if err != nil {
				return walkCompleted, fmt.Errorf("condition %s failed: %w", node.ID, err)
			}

			if execCtx.Variables == nil {
				execCtx.Variables = make(map[string]any)
			}

			execCtx.Variables["condition_"+node.ID] = result

			out := models.OutgoingEdges(workflow.Edges, node.ID)

			edge, found := models.ResolveConditionEdge(out, result)
			if found {
				stack = append(stack, edge.TargetNodeID)
			}

			logger.InfoContext(ctx, "Condition evaluated", "node_id", node.ID, "result", result)

		case models.NodeKindSplit:
			variant, err := e.allocateVariant(ctx, workflow, node)
			if err != nil {
				return walkCompleted, fmt.Errorf("split %s failed: %w", node.ID, err)
			}

			out := models.OutgoingEdges(workflow.Edges, node.ID)

			edge, found := models.ResolveSplitEdge(out, variant)
			if found {
				stack = append(stack, edge.TargetNodeID)
			}

			logger.InfoContext(ctx, "Split variant selected", "node_id", node.ID, "variant", variant)

		case models.NodeKindDelay, models.NodeKindWaitForEvent:
			if err := e.suspend(ctx, execution, node); err != nil {
				return walkCompleted, fmt.Errorf("failed to suspend at node %s: %w", node.ID, err)
			}

			suspended = true

		case models.NodeKindGoal:
			if err := e.registerGoal(ctx, execution, execCtx, node); err != nil {
				return walkCompleted, fmt.Errorf("failed to register goal %s: %w", node.ID, err)
			}

			stack = pushTargets(stack, workflow.Edges, node.ID)

		case models.NodeKindExit:
			logger.InfoContext(ctx, "Exit node reached", "node_id", node.ID)

			return walkCompleted, nil

		default:
			logger.WarnContext(ctx, "Unknown node kind, continuing", "node_id", node.ID, "kind", string(node.Kind))

			stack = pushTargets(stack, workflow.Edges, node.ID)
		}
	}

	if suspended {
		return walkWaiting, nil
	}

	return walkCompleted, nil
}

// executeAction dispatches one action node to its handler and records exactly
// one ActionRecord regardless of outcome. A handler error other than the stop
// signal is recorded and swallowed: one bad action does not sink the run.
func (e *Engine) executeAction(ctx context.Context, workflow *models.Workflow, execution *models.Execution, execCtx *models.ExecutionContext, node models.Node, logger *slog.Logger) (stopped bool, err error) {
	kind := actions.ParseKind(node.Config)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_action",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ActionTypeKey, string(kind)))
	defer span.End()

	record := &models.ActionRecord{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		ActionType:  kind,
		Config:      node.Config,
		ExecutedAt:  e.now(),
	}

	result, actionErr := e.dispatchAction(ctx, kind, node, execCtx, logger)

	switch {
	case errors.Is(actionErr, actions.ErrStopWorkflow):
		record.Status = models.ActionStatusStopped
		record.ErrorMessage = actionErr.Error()
		stopped = true
	case actionErr != nil:
		record.Status = models.ActionStatusFailed
		record.ErrorMessage = actionErr.Error()
		otelhelper.SetError(span, actionErr)

		logger.WarnContext(ctx, "Action failed, continuing",
			"node_id", node.ID, "action_type", string(kind), "error", actionErr)
	default:
		record.Status = models.ActionStatusSuccess
		record.Result = result

		e.countActionMetric(ctx, workflow.ID, kind)
	}

	if err := e.store.ActionRecordRepository().Save(ctx, record); err != nil {
		return false, fmt.Errorf("failed to save action record for node %s: %w", node.ID, err)
	}

	e.publish(ctx, workflow.ID, events.ActionExecuted{
		BaseEvent:   e.newEvent(events.ActionExecutedEvent, workflow.ID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		ActionType:  string(kind),
		Status:      string(record.Status),
		Result:      record.Result,
		Error:       record.ErrorMessage,
	})

	return stopped, nil
}

func (e *Engine) dispatchAction(ctx context.Context, kind models.ActionKind, node models.Node, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	handler, err := actions.NewHandler(kind, node.Config, e.deps)
	if err != nil {
		return nil, err
	}

	return handler.Execute(ctx, execCtx, logger)
}

func (e *Engine) countActionMetric(ctx context.Context, workflowID string, kind models.ActionKind) {
	var metric string

	switch kind {
	case models.ActionKindSendEmail:
		metric = models.MetricEmailSent
	case models.ActionKindSendSMS:
		metric = models.MetricSMSSent
	case models.ActionKindWebhook:
		metric = models.MetricWebhookCalls
	default:
		return
	}

	e.incrementMetric(ctx, workflowID, metric)
}

func (e *Engine) incrementMetric(ctx context.Context, workflowID, metric string) {
	err := e.counters.Increment(ctx, workflowID, metric, models.MetricDate(e.now()))
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to increment metric",
			"workflow_id", workflowID, "metric", metric, "error", err)
	}
}

// finishWalk translates a walk outcome into the execution's terminal (or
// waiting) state and persists it.
func (e *Engine) finishWalk(ctx context.Context, execution *models.Execution, execCtx *models.ExecutionContext, outcome walkOutcome, walkErr error) error {
	if walkErr != nil {
		return e.failExecution(ctx, execution, execution.CurrentNodeID, walkErr)
	}

	now := e.now()
	execution.ExecutedNodeIDs = execCtx.ExecutedNodeIDs()
	execution.Variables = execCtx.Variables
	syncIdentity(execution, execCtx)

	switch outcome {
	case walkWaiting:
		execution.Status = models.ExecutionStatusWaiting

	case walkStopped:
		execution.Status = models.ExecutionStatusStopped
		execution.CompletedAt = &now

		e.incrementMetric(ctx, execution.WorkflowID, models.MetricStopped)
		e.observeTerminal("stopped")
		e.publish(ctx, execution.WorkflowID, events.ExecutionStopped{
			BaseEvent:   e.newEvent(events.ExecutionStoppedEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			NodeID:      execution.CurrentNodeID,
		})

	case walkCompleted:
		execution.Status = models.ExecutionStatusCompleted
		execution.CompletedAt = &now

		e.incrementMetric(ctx, execution.WorkflowID, models.MetricSuccess)
		e.observeTerminal("completed")

		duration := time.Duration(0)
		if execution.StartedAt != nil {
			duration = now.Sub(*execution.StartedAt)
		}

		e.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
			BaseEvent:     e.newEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
			ExecutionID:   execution.ID,
			NodesExecuted: len(execution.ExecutedNodeIDs),
			Duration:      duration,
		})
	}

	if err := e.store.ExecutionRepository().Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// failExecution marks the execution failed with the error message. The error
// is returned so loop callers can log it.
func (e *Engine) failExecution(ctx context.Context, execution *models.Execution, nodeID string, cause error) error {
	now := e.now()
	execution.Status = models.ExecutionStatusFailed
	execution.FailedAt = &now
	execution.ErrorMessage = cause.Error()

	e.incrementMetric(ctx, execution.WorkflowID, models.MetricFailed)
	e.observeTerminal("failed")
	e.publish(ctx, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:   e.newEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Error:       cause.Error(),
	})

	if err := e.store.ExecutionRepository().Save(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist failed execution", "execution_id", execution.ID, "error", err)
	}

	return cause
}

func (e *Engine) observeTerminal(status string) {
	if e.loopMetrics != nil {
		e.loopMetrics.Executions.WithLabelValues(status).Inc()
	}
}

func (e *Engine) newEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowID)
	base.EngineID = e.config.EngineID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", string(event.GetType()), "error", err)
	}
}

// buildContext reconstructs the in-memory context from the persisted
// execution row. Node kinds for previously executed nodes are looked up from
// the graph; their original timestamps are not retained.
func buildContext(workflow *models.Workflow, execution *models.Execution) *models.ExecutionContext {
	execCtx := &models.ExecutionContext{
		ExecutionID:   execution.ID,
		WorkflowID:    execution.WorkflowID,
		ContactID:     execution.ContactID,
		LeadID:        execution.LeadID,
		OpportunityID: execution.OpportunityID,
		EmailAddress:  execution.EmailAddress,
		PhoneNumber:   execution.PhoneNumber,
		TriggerData:   execution.TriggerData,
		Variables:     execution.Variables,
	}

	if execCtx.Variables == nil {
		execCtx.Variables = make(map[string]any)
	}

	for _, nodeID := range execution.ExecutedNodeIDs {
		kind := models.NodeKind("")
		if node, ok := workflow.NodeByID(nodeID); ok {
			kind = node.Kind
		}

		execCtx.ExecutedNodes = append(execCtx.ExecutedNodes, models.ExecutedNode{
			NodeID: nodeID,
			Kind:   kind,
		})
	}

	return execCtx
}

// syncIdentity copies entity references mutated during the walk (create
// contact/opportunity handlers) back onto the durable row.
func syncIdentity(execution *models.Execution, execCtx *models.ExecutionContext) {
	execution.ContactID = execCtx.ContactID
	execution.LeadID = execCtx.LeadID
	execution.OpportunityID = execCtx.OpportunityID
	execution.EmailAddress = execCtx.EmailAddress
	execution.PhoneNumber = execCtx.PhoneNumber
}

// pushTargets appends the targets of every outgoing edge in reverse, so the
// LIFO work list visits them in definition order.
func pushTargets(stack []string, edges []models.Edge, nodeID string) []string {
	out := models.OutgoingEdges(edges, nodeID)

	for i := len(out) - 1; i >= 0; i-- {
		stack = append(stack, out[i].TargetNodeID)
	}

	return stack
}
