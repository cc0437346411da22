package actions

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/dripflow/dripflow/pkg/capabilities/memory"
	"github.com/dripflow/dripflow/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHandlerUnknownKind(t *testing.T) {
	_, err := NewHandler(models.ActionKind("teleport"), nil, Dependencies{})
	require.ErrorIs(t, err, ErrUnknownActionKind)
}

func TestSendEmailPrefersConfigRecipient(t *testing.T) {
	sender := memory.NewEmailSender()

	handler, err := NewSendEmailHandler(map[string]any{
		"subject": "hello",
		"body":    "world",
		"to":      "override@example.com",
	}, sender)
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{EmailAddress: "ana@example.com"}

	result, err := handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "override@example.com", result["to"])
	require.Len(t, sender.Sent, 1)
	assert.Equal(t, "override@example.com", sender.Sent[0].To)
}

func TestSendEmailWithoutRecipientFails(t *testing.T) {
	handler, err := NewSendEmailHandler(map[string]any{"subject": "s", "body": "b"}, memory.NewEmailSender())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{}, discardLogger())
	require.ErrorIs(t, err, ErrNoEmailAddress)
}

func TestSendSMSFallsBackToExecutionPhone(t *testing.T) {
	sender := memory.NewSMSSender()

	handler, err := NewSendSMSHandler(map[string]any{"body": "ping"}, sender)
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{PhoneNumber: "+15551234"}

	_, err = handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)
	require.Len(t, sender.Sent, 1)
	assert.Equal(t, "+15551234", sender.Sent[0].To)
	assert.Equal(t, "ping", sender.Sent[0].Body)
}

func TestTagHandlerAddsAndDeduplicates(t *testing.T) {
	crm := memory.NewCRMStore()
	crm.SeedLead(&capabilities.Lead{ID: "lead-1", Tags: []string{"existing"}})

	execCtx := &models.ExecutionContext{LeadID: "lead-1"}

	handler, err := NewTagHandler(map[string]any{"tag": "vip"}, crm, true)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)

	// Adding the same tag again with different casing is a no-op.
	handler, err = NewTagHandler(map[string]any{"tag": "VIP"}, crm, true)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)

	tags, err := crm.Tags(context.Background(), capabilities.EntityTypeLead, "lead-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"existing", "vip"}, tags)
}

func TestTagHandlerRemoves(t *testing.T) {
	crm := memory.NewCRMStore()
	crm.SeedLead(&capabilities.Lead{ID: "lead-1", Tags: []string{"vip", "newsletter"}})

	handler, err := NewTagHandler(map[string]any{"tag": "VIP"}, crm, false)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{LeadID: "lead-1"}, discardLogger())
	require.NoError(t, err)

	tags, err := crm.Tags(context.Background(), capabilities.EntityTypeLead, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"newsletter"}, tags)
}

func TestTagHandlerSkipsWithoutTarget(t *testing.T) {
	handler, err := NewTagHandler(map[string]any{"tag": "vip"}, memory.NewCRMStore(), true)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), &models.ExecutionContext{}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, true, result["skipped"])
}

func TestUpdateLeadScoreOperations(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		value     float64
		want      float64
	}{
		{"set", "set", 80, 80},
		{"add", "add", 15, 65},
		{"subtract", "subtract", 20, 30},
		{"default is set", "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := memory.NewCRMStore()
			crm.SeedLead(&capabilities.Lead{ID: "lead-1", Score: 50})

			config := map[string]any{"value": tt.value}
			if tt.operation != "" {
				config["operation"] = tt.operation
			}

			handler, err := NewUpdateLeadScoreHandler(config, crm)
			require.NoError(t, err)

			_, err = handler.Execute(context.Background(), &models.ExecutionContext{LeadID: "lead-1"}, discardLogger())
			require.NoError(t, err)

			lead, err := crm.GetLead(context.Background(), "lead-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, lead.Score)
		})
	}
}

func TestUpdateLeadScoreRejectsUnknownOperation(t *testing.T) {
	_, err := NewUpdateLeadScoreHandler(map[string]any{"operation": "multiply", "value": 2}, memory.NewCRMStore())
	require.Error(t, err)
}

func TestUpdateLeadScoreWithoutLead(t *testing.T) {
	handler, err := NewUpdateLeadScoreHandler(map[string]any{"value": 10}, memory.NewCRMStore())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{}, discardLogger())
	require.ErrorIs(t, err, ErrNoLeadID)
}

func TestUpdateFieldOnContact(t *testing.T) {
	crm := memory.NewCRMStore()
	crm.SeedContact(&capabilities.Contact{ID: "contact-1", Fields: map[string]any{}})

	handler, err := NewUpdateFieldHandler(map[string]any{
		"entity_type": "contact",
		"field":       "plan",
		"value":       "pro",
	}, crm)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{ContactID: "contact-1"}, discardLogger())
	require.NoError(t, err)

	contact, err := crm.GetContact(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "pro", contact.Fields["plan"])
}

func TestCreateContactPointsContextAtNewRecord(t *testing.T) {
	crm := memory.NewCRMStore()

	handler, err := NewCreateContactHandler(map[string]any{
		"fields": map[string]any{"source": "workflow"},
	}, crm)
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{EmailAddress: "ana@example.com"}

	result, err := handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)
	require.NotEmpty(t, execCtx.ContactID)
	assert.Equal(t, execCtx.ContactID, result["contact_id"])

	contact, err := crm.GetContact(context.Background(), execCtx.ContactID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", contact.Email)
}

func TestCreateTaskUsesCRM(t *testing.T) {
	crm := memory.NewCRMStore()

	handler, err := NewCreateTaskHandler(map[string]any{
		"title":     "Call the lead",
		"assign_to": "user-7",
	}, crm)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{LeadID: "lead-1"}, discardLogger())
	require.NoError(t, err)

	tasks := crm.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call the lead", tasks[0].Title)
}

func TestWebhookPostsContextPayload(t *testing.T) {
	var (
		gotMethod string
		gotBody   map[string]any
		gotHeader string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	handler, err := NewWebhookHandler(map[string]any{
		"url":             server.URL,
		"headers":         map[string]string{"X-Token": "secret"},
		"payload":         map[string]any{"event": "converted"},
		"include_context": true,
	}, server.Client())
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		ContactID:   "contact-1",
		TriggerData: map[string]any{"plan": "pro"},
	}

	result, err := handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result["status_code"])

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "converted", gotBody["event"])
	assert.Equal(t, "exec-1", gotBody["execution_id"])
	assert.Equal(t, "contact-1", gotBody["contact_id"])
}

func TestWebhookErrorStatusIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	handler, err := NewWebhookHandler(map[string]any{"url": server.URL}, server.Client())
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), &models.ExecutionContext{}, discardLogger())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, result["status_code"])
}

func TestWebhookRequiresURL(t *testing.T) {
	_, err := NewWebhookHandler(map[string]any{}, nil)
	require.Error(t, err)
}

func TestStopWorkflowRaisesStopSignal(t *testing.T) {
	handler, err := NewStopWorkflowHandler(map[string]any{"reason": "unsubscribed"})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &models.ExecutionContext{}, discardLogger())
	require.ErrorIs(t, err, ErrStopWorkflow)
}

type recordingEnqueuer struct {
	workflowID string
	trigger    models.TriggerPayload
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, workflowID string, trigger models.TriggerPayload) (string, error) {
	r.workflowID = workflowID
	r.trigger = trigger

	return "exec-sub", nil
}

func TestTriggerWorkflowPropagatesIdentity(t *testing.T) {
	enqueuer := &recordingEnqueuer{}

	handler, err := NewTriggerWorkflowHandler(map[string]any{
		"workflow_id":        "wf-child",
		"propagate_identity": true,
	}, enqueuer)
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{
		ExecutionID: "exec-parent",
		ContactID:   "contact-1",
		LeadID:      "lead-1",
	}

	result, err := handler.Execute(context.Background(), execCtx, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "exec-sub", result["execution_id"])

	assert.Equal(t, "wf-child", enqueuer.workflowID)
	assert.Equal(t, "contact-1", enqueuer.trigger.ContactID)
	assert.Equal(t, "lead-1", enqueuer.trigger.LeadID)
	assert.Equal(t, "exec-parent", enqueuer.trigger.Data["triggered_by_execution"])
}
