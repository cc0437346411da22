package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/mitchellh/mapstructure"
)

const webhookTimeoutSeconds = 30

// WebhookHandler performs an HTTP call to an external URL. With
// include_context set, the execution's identity references and trigger data
// are merged into the JSON request body.
type WebhookHandler struct {
	client         *http.Client
	URL            string            `mapstructure:"url"`
	Method         string            `mapstructure:"method"`
	Headers        map[string]string `mapstructure:"headers"`
	Body           map[string]any    `mapstructure:"payload"`
	IncludeContext bool              `mapstructure:"include_context"`
}

func NewWebhookHandler(config map[string]any, client *http.Client) (*WebhookHandler, error) {
	handler := &WebhookHandler{client: client}
	if err := mapstructure.Decode(config, handler); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	if handler.URL == "" {
		return nil, errors.New("missing required field 'url'")
	}

	if handler.Method == "" {
		handler.Method = http.MethodPost
	}

	handler.Method = strings.ToUpper(handler.Method)

	if handler.client == nil {
		handler.client = &http.Client{Timeout: webhookTimeoutSeconds * time.Second}
	}

	return handler, nil
}

func (h *WebhookHandler) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	req, err := h.buildRequest(ctx, execCtx)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.ErrorContext(ctx, "Failed to close webhook response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	logger.InfoContext(ctx, "Webhook called", "url", h.URL, "status", resp.StatusCode)

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(body),
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return result, nil
}

func (h *WebhookHandler) buildRequest(ctx context.Context, execCtx *models.ExecutionContext) (*http.Request, error) {
	payload := make(map[string]any, len(h.Body)+2)
	for k, v := range h.Body {
		payload[k] = v
	}

	if h.IncludeContext {
		payload["execution_id"] = execCtx.ExecutionID
		payload["workflow_id"] = execCtx.WorkflowID
		payload["contact_id"] = execCtx.ContactID
		payload["lead_id"] = execCtx.LeadID
		payload["trigger_data"] = execCtx.TriggerData
	}

	var bodyReader io.Reader

	if len(payload) > 0 {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
		}

		bodyReader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
