// Package template renders personalization tokens in message bodies and
// subjects. Authors write Go template expressions over the execution context:
// {{.trigger.plan}}, {{.vars.discount_code}}, {{.contact_id}}.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dripflow/dripflow/pkg/models"
)

// RenderWithContext renders the input against the execution context. Inputs
// without template markers are returned unchanged without parsing.
func RenderWithContext(input string, execCtx *models.ExecutionContext) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	data := map[string]any{
		"trigger":        execCtx.TriggerData,
		"vars":           execCtx.Variables,
		"contact_id":     execCtx.ContactID,
		"lead_id":        execCtx.LeadID,
		"opportunity_id": execCtx.OpportunityID,
		"email":          execCtx.EmailAddress,
		"phone":          execCtx.PhoneNumber,
		"execution": map[string]any{
			"id":          execCtx.ExecutionID,
			"workflow_id": execCtx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Render executes one template string against arbitrary data.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("personalization").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": func(s string) string {
				if s == "" {
					return s
				}

				return strings.ToUpper(s[:1]) + s[1:]
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", templateStr, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %q: %w", templateStr, err)
	}

	return buf.String(), nil
}
