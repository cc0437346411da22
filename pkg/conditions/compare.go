// Package conditions provides the pure evaluators behind condition nodes.
package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dripflow/dripflow/pkg/models"
)

// Compare applies one operator to a field value and a literal. It never
// panics or errors on missing input: a nil left side satisfies is_empty and
// fails every other operator.
func Compare(left any, operator models.Operator, right any) bool {
	switch operator {
	case models.OperatorIsEmpty:
		return isEmpty(left)
	case models.OperatorIsNotEmpty:
		return !isEmpty(left)
	case models.OperatorEquals, models.OperatorNotEquals, models.OperatorContains,
		models.OperatorNotContains, models.OperatorGreaterThan, models.OperatorLessThan,
		models.OperatorGreaterOrEqual, models.OperatorLessOrEqual,
		models.OperatorStartsWith, models.OperatorEndsWith:
	default:
		return false
	}

	if left == nil {
		return false
	}

	switch operator {
	case models.OperatorEquals:
		return equals(left, right)
	case models.OperatorNotEquals:
		return !equals(left, right)
	case models.OperatorContains:
		return strings.Contains(toString(left), toString(right))
	case models.OperatorNotContains:
		return !strings.Contains(toString(left), toString(right))
	case models.OperatorStartsWith:
		return strings.HasPrefix(toString(left), toString(right))
	case models.OperatorEndsWith:
		return strings.HasSuffix(toString(left), toString(right))
	case models.OperatorGreaterThan:
		l, r, ok := toNumbers(left, right)

		return ok && l > r
	case models.OperatorLessThan:
		l, r, ok := toNumbers(left, right)

		return ok && l < r
	case models.OperatorGreaterOrEqual:
		l, r, ok := toNumbers(left, right)

		return ok && l >= r
	case models.OperatorLessOrEqual:
		l, r, ok := toNumbers(left, right)

		return ok && l <= r
	case models.OperatorIsEmpty, models.OperatorIsNotEmpty:
		// Handled above.
	}

	return false
}

// equals compares numerically when both sides are numbers, otherwise by
// coerced string form.
func equals(left, right any) bool {
	l, r, ok := toNumbers(left, right)
	if ok {
		return l == r
	}

	return toString(left) == toString(right)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toNumbers(left, right any) (float64, float64, bool) {
	l, okL := toFloat(left)
	r, okR := toFloat(right)

	return l, r, okL && okR
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
