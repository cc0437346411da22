package models

import "time"

// Metric names for the per-workflow daily analytics counters.
const (
	MetricSuccess      = "success"
	MetricFailed       = "failed"
	MetricStopped      = "stopped"
	MetricEmailSent    = "email_sent"
	MetricSMSSent      = "sms_sent"
	MetricWebhookCalls = "webhook_calls"
)

// DailyMetric is one analytics counter row keyed by workflow, date and metric
// name. The engine only increments; the reporting UI reads.
type DailyMetric struct {
	WorkflowID string    `json:"workflow_id"`
	Date       string    `json:"date"` // YYYY-MM-DD, UTC
	Metric     string    `json:"metric"`
	Count      int64     `json:"count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MetricDate formats a timestamp as the UTC date key used for daily counters.
func MetricDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
