package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/testutil"
)

func TestLinearWorkflowCompletes(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-linear",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("welcome", "send_email", map[string]any{"subject": "Welcome", "body": "Hello"}),
			testutil.ActionNode("followup", "send_email", map[string]any{"subject": "Follow up", "body": "Still here"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "welcome"),
			testutil.Edge("welcome", "followup"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusPending, execution.Status)

	h.drainPending(t)

	execution = h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"trigger", "welcome", "followup"}, execution.ExecutedNodeIDs)
	require.NotNil(t, execution.CompletedAt)

	require.Len(t, h.email.Sent, 2)
	assert.Equal(t, "Welcome", h.email.Sent[0].Subject)
	assert.Equal(t, "ana@example.com", h.email.Sent[0].To)

	records := h.actionRecords(t, id)
	require.Len(t, records, 2)

	for _, record := range records {
		assert.Equal(t, models.ActionStatusSuccess, record.Status)
	}

	assert.Equal(t, int64(1), h.metric(t, workflow.ID, models.MetricSuccess))
	assert.Equal(t, int64(2), h.metric(t, workflow.ID, models.MetricEmailSent))
}

func TestCycleGuardVisitsEachNodeOnce(t *testing.T) {
	h := newHarness(t)

	// a2 loops back to a1; the guard must break the cycle.
	workflow := testutil.Workflow("wf-cycle",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("a1", "send_email", map[string]any{"subject": "one", "body": "x"}),
			testutil.ActionNode("a2", "send_email", map[string]any{"subject": "two", "body": "y"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "a1"),
			testutil.Edge("a1", "a2"),
			testutil.Edge("a2", "a1"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"trigger", "a1", "a2"}, execution.ExecutedNodeIDs)
	assert.Len(t, h.email.Sent, 2)
}

func TestConditionFollowsExactlyOneBranch(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-branch",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ConditionNode("is-pro", "plan", "equals", "pro"),
			testutil.ActionNode("pro-mail", "send_email", map[string]any{"subject": "pro", "body": "x"}),
			testutil.ActionNode("free-mail", "send_email", map[string]any{"subject": "free", "body": "y"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "is-pro"),
			testutil.LabeledEdge("is-pro", "pro-mail", "true"),
			testutil.LabeledEdge("is-pro", "free-mail", "false"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{
		EmailAddress: "ana@example.com",
		Data:         map[string]any{"plan": "pro"},
	})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	require.Len(t, h.email.Sent, 1)
	assert.Equal(t, "pro", h.email.Sent[0].Subject)
	assert.NotContains(t, execution.ExecutedNodeIDs, "free-mail")
	assert.Equal(t, true, execution.Variables["condition_is-pro"])
}

func TestConditionFalseBranch(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-branch-false",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ConditionNode("is-pro", "plan", "equals", "pro"),
			testutil.ActionNode("pro-mail", "send_email", map[string]any{"subject": "pro", "body": "x"}),
			testutil.ActionNode("free-mail", "send_email", map[string]any{"subject": "free", "body": "y"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "is-pro"),
			testutil.LabeledEdge("is-pro", "pro-mail", "true"),
			testutil.LabeledEdge("is-pro", "free-mail", "false"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{
		EmailAddress: "ana@example.com",
		Data:         map[string]any{"plan": "free"},
	})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	require.Len(t, h.email.Sent, 1)
	assert.Equal(t, "free", h.email.Sent[0].Subject)
	assert.Equal(t, false, execution.Variables["condition_is-pro"])
}

func TestTriggerFansOutToAllBranches(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-fanout",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("left", "send_email", map[string]any{"subject": "left", "body": "x"}),
			testutil.ActionNode("right", "send_sms", map[string]any{"body": "right"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "left"),
			testutil.Edge("trigger", "right"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{
		EmailAddress: "ana@example.com",
		PhoneNumber:  "+15551234",
	})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, h.email.Sent, 1)
	assert.Len(t, h.sms.Sent, 1)
	assert.Len(t, execution.ExecutedNodeIDs, 3)
}

func TestActionFailureDoesNotHaltWalk(t *testing.T) {
	h := newHarness(t)

	// The email action fails (no address anywhere); the downstream SMS still
	// runs and the execution completes.
	workflow := testutil.Workflow("wf-partial",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "s", "body": "b"}),
			testutil.ActionNode("text", "send_sms", map[string]any{"body": "fallback"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "mail"),
			testutil.Edge("mail", "text"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{PhoneNumber: "+15551234"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	assert.Empty(t, h.email.Sent)
	require.Len(t, h.sms.Sent, 1)
	assert.Equal(t, "fallback", h.sms.Sent[0].Body)

	records := h.actionRecords(t, id)
	require.Len(t, records, 2)

	byNode := make(map[string]*models.ActionRecord, len(records))
	for _, record := range records {
		byNode[record.NodeID] = record
	}

	require.Contains(t, byNode, "mail")
	assert.Equal(t, models.ActionStatusFailed, byNode["mail"].Status)
	assert.NotEmpty(t, byNode["mail"].ErrorMessage)

	require.Contains(t, byNode, "text")
	assert.Equal(t, models.ActionStatusSuccess, byNode["text"].Status)

	assert.Equal(t, int64(1), h.metric(t, workflow.ID, models.MetricSuccess))
}

func TestStopWorkflowActionHaltsEverything(t *testing.T) {
	h := newHarness(t)

	// The stop action is visited before the sibling branch; nothing after the
	// stop fires, including work already on the stack.
	workflow := testutil.Workflow("wf-stop",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("halt", "stop_workflow", nil),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "s", "body": "b"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "halt"),
			testutil.Edge("trigger", "mail"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusStopped, execution.Status)
	require.NotNil(t, execution.CompletedAt)
	assert.Empty(t, h.email.Sent)

	records := h.actionRecords(t, id)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusStopped, records[0].Status)

	assert.Equal(t, int64(1), h.metric(t, workflow.ID, models.MetricStopped))
	assert.Equal(t, int64(0), h.metric(t, workflow.ID, models.MetricSuccess))
}

func TestExitNodeHaltsWalkAsCompleted(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-exit",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ExitNode("done"),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "s", "body": "b"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "done"),
			testutil.Edge("trigger", "mail"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Empty(t, h.email.Sent)
	assert.Equal(t, []string{"trigger", "done"}, execution.ExecutedNodeIDs)
}

func TestEdgeToMissingNodeIsSkipped(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-dangling",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "s", "body": "b"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "ghost"),
			testutil.Edge("trigger", "mail"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, h.email.Sent, 1)
}

func TestGoalNodeRegistersAndContinues(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-goal",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.Node("purchase", models.NodeKindGoal, map[string]any{"goal_type": "purchase"}),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "thanks", "body": "b"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "purchase"),
			testutil.Edge("purchase", "mail"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, h.email.Sent, 1)

	goals, err := h.store.GoalRepository().ListByWorkflow(context.Background(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "purchase", goals[0].GoalType)
	assert.Equal(t, id, goals[0].ExecutionID)
}

func TestRunExecutionFailsWhenWorkflowHasNoTrigger(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-no-trigger",
		[]models.Node{testutil.ActionNode("mail", "send_email", nil)},
		nil,
	)
	h.saveWorkflow(t, workflow)

	// Bypass Enqueue, which would reject this workflow up front.
	execution := &models.Execution{
		ID:         "exec-no-trigger",
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusPending,
		CreatedAt:  h.clock.Now(),
	}
	require.NoError(t, h.store.ExecutionRepository().Save(context.Background(), execution))

	h.drainPending(t)

	stored := h.getExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "no trigger node")
	assert.Equal(t, int64(1), h.metric(t, workflow.ID, models.MetricFailed))
}

func TestClaimedExecutionIsNotPickedUpTwice(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-claim",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "s", "body": "b"}),
		},
		[]models.Edge{testutil.Edge("trigger", "mail")},
	)
	h.saveWorkflow(t, workflow)

	h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})

	h.drainPending(t)
	h.drainPending(t)

	assert.Len(t, h.email.Sent, 1)
}

func TestTemplatePersonalizationInEmail(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-template",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("mail", "send_email", map[string]any{
				"subject": "Hi {{.trigger.first_name}}",
				"body":    "Your plan is {{upper .trigger.plan}}",
			}),
		},
		[]models.Edge{testutil.Edge("trigger", "mail")},
	)
	h.saveWorkflow(t, workflow)

	h.enqueue(t, workflow.ID, models.TriggerPayload{
		EmailAddress: "ana@example.com",
		Data:         map[string]any{"first_name": "Ana", "plan": "pro"},
	})
	h.drainPending(t)

	require.Len(t, h.email.Sent, 1)
	assert.Equal(t, "Hi Ana", h.email.Sent[0].Subject)
	assert.Equal(t, "Your plan is PRO", h.email.Sent[0].Body)
}

func TestDelaySuspendsAndResumesWithoutRefiringActions(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-delay",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.ActionNode("first", "send_email", map[string]any{"subject": "first", "body": "x"}),
			testutil.DelayNode("wait", 2, "hours"),
			testutil.ActionNode("second", "send_email", map[string]any{"subject": "second", "body": "y"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "first"),
			testutil.Edge("first", "wait"),
			testutil.Edge("wait", "second"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	execution := h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Len(t, h.email.Sent, 1)

	suspensions, err := h.store.SuspensionRepository().ListDue(
		context.Background(), h.clock.Now().Add(3*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, suspensions, 1)
	require.NotNil(t, suspensions[0].ResumeAt)
	assert.Equal(t, h.clock.Now().Add(2*time.Hour), *suspensions[0].ResumeAt)

	// One hour in: not due yet.
	h.clock.Advance(time.Hour)
	require.NoError(t, h.engine.processResumes(context.Background()))
	assert.Equal(t, models.ExecutionStatusWaiting, h.getExecution(t, id).Status)
	assert.Len(t, h.email.Sent, 1)

	// Two hours in: due. The resume walks the delay's successors only.
	h.clock.Advance(time.Hour)
	require.NoError(t, h.engine.processResumes(context.Background()))

	execution = h.getExecution(t, id)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"trigger", "first", "wait", "second"}, execution.ExecutedNodeIDs)

	require.Len(t, h.email.Sent, 2)
	assert.Equal(t, "second", h.email.Sent[1].Subject)

	// A further tick must not resume again.
	require.NoError(t, h.engine.processResumes(context.Background()))
	assert.Len(t, h.email.Sent, 2)
}

func TestWaitForEventSuspendsUntilTimeout(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.Workflow("wf-wait-event",
		[]models.Node{
			testutil.TriggerNode("trigger"),
			testutil.Node("wait", models.NodeKindWaitForEvent, map[string]any{
				"event_type":    "email_opened",
				"timeout_hours": 24,
			}),
			testutil.ActionNode("mail", "send_email", map[string]any{"subject": "nudge", "body": "b"}),
		},
		[]models.Edge{
			testutil.Edge("trigger", "wait"),
			testutil.Edge("wait", "mail"),
		},
	)
	h.saveWorkflow(t, workflow)

	id := h.enqueue(t, workflow.ID, models.TriggerPayload{EmailAddress: "ana@example.com"})
	h.drainPending(t)

	assert.Equal(t, models.ExecutionStatusWaiting, h.getExecution(t, id).Status)

	waiting, err := h.store.SuspensionRepository().ListWaitingForEvent(context.Background(), "email_opened")
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, models.SuspensionKindWaitForEvent, waiting[0].Kind)

	// Nothing happens before the timeout elapses.
	h.clock.Advance(23 * time.Hour)
	require.NoError(t, h.engine.processResumes(context.Background()))
	assert.Equal(t, models.ExecutionStatusWaiting, h.getExecution(t, id).Status)

	// Timeout elapsed: the execution resumes down the same edges.
	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.engine.processResumes(context.Background()))
	assert.Equal(t, models.ExecutionStatusCompleted, h.getExecution(t, id).Status)
	assert.Len(t, h.email.Sent, 1)
}
