package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dripflow/dripflow/pkg/models"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		operator models.Operator
		right    any
		want     bool
	}{
		{"equals strings", "pro", models.OperatorEquals, "pro", true},
		{"equals mismatch", "pro", models.OperatorEquals, "free", false},
		{"equals numeric across types", 42, models.OperatorEquals, 42.0, true},
		{"equals numeric string", "42", models.OperatorEquals, 42, true},
		{"not_equals", "pro", models.OperatorNotEquals, "free", true},
		{"not_equals same", "pro", models.OperatorNotEquals, "pro", false},
		{"contains", "hello world", models.OperatorContains, "world", true},
		{"contains missing", "hello world", models.OperatorContains, "mars", false},
		{"not_contains", "hello world", models.OperatorNotContains, "mars", true},
		{"greater_than", 10, models.OperatorGreaterThan, 5, true},
		{"greater_than equal values", 5, models.OperatorGreaterThan, 5, false},
		{"greater_than string numbers", "10", models.OperatorGreaterThan, "9", true},
		{"less_than", 3.5, models.OperatorLessThan, 4, true},
		{"greater_or_equal boundary", 5, models.OperatorGreaterOrEqual, 5, true},
		{"less_or_equal boundary", 5, models.OperatorLessOrEqual, 5, true},
		{"less_or_equal above", 6, models.OperatorLessOrEqual, 5, false},
		{"is_empty nil", nil, models.OperatorIsEmpty, nil, true},
		{"is_empty blank string", "   ", models.OperatorIsEmpty, nil, true},
		{"is_empty empty slice", []any{}, models.OperatorIsEmpty, nil, true},
		{"is_empty value present", "x", models.OperatorIsEmpty, nil, false},
		{"is_not_empty", "x", models.OperatorIsNotEmpty, nil, true},
		{"is_not_empty nil", nil, models.OperatorIsNotEmpty, nil, false},
		{"starts_with", "workflow-42", models.OperatorStartsWith, "workflow", true},
		{"starts_with mismatch", "workflow-42", models.OperatorStartsWith, "42", false},
		{"ends_with", "ana@example.com", models.OperatorEndsWith, "@example.com", true},
		{"nil left fails ordinary operators", nil, models.OperatorEquals, "x", false},
		{"non-numeric comparison fails", "abc", models.OperatorGreaterThan, 5, false},
		{"unknown operator", "x", models.Operator("matches"), "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.left, tt.operator, tt.right))
		})
	}
}
