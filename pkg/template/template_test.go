package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripflow/dripflow/pkg/models"
)

func testContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ExecutionID:  "exec-1",
		WorkflowID:   "wf-1",
		ContactID:    "contact-1",
		EmailAddress: "ana@example.com",
		TriggerData:  map[string]any{"first_name": "Ana", "plan": "pro"},
		Variables:    map[string]any{"discount_code": "SPRING20"},
	}
}

func TestRenderWithContextTriggerAndVariables(t *testing.T) {
	out, err := RenderWithContext("Hi {{.trigger.first_name}}, use {{.vars.discount_code}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana, use SPRING20", out)
}

func TestRenderWithContextIdentityFields(t *testing.T) {
	out, err := RenderWithContext("{{.contact_id}} / {{.email}} / {{.execution.workflow_id}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "contact-1 / ana@example.com / wf-1", out)
}

func TestRenderWithContextPassesThroughPlainText(t *testing.T) {
	input := "No tokens here, just {braces} and $vars"

	out, err := RenderWithContext(input, testContext())
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestRenderWithContextFuncs(t *testing.T) {
	out, err := RenderWithContext("{{upper .trigger.plan}}-{{lower \"LOUD\"}}-{{title \"ana\"}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "PRO-loud-Ana", out)
}

func TestRenderWithContextMissingKeyDoesNotError(t *testing.T) {
	// missingkey=zero yields the zero value for map[string]any entries, which
	// text/template prints as "<no value>". The point is it never errors.
	out, err := RenderWithContext("[{{.vars.not_set}}]", testContext())
	require.NoError(t, err)
	assert.Equal(t, "[<no value>]", out)
}

func TestRenderWithContextParseError(t *testing.T) {
	_, err := RenderWithContext("{{.trigger.first_name", testContext())
	require.Error(t, err)
}

func TestRenderArbitraryData(t *testing.T) {
	out, err := Render("{{.count}} items", map[string]any{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, "3 items", out)
}
