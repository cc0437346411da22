package models

// ConditionKind enumerates the closed set of condition node evaluators.
type ConditionKind string

const (
	ConditionKindFieldCompare ConditionKind = "field_compare"
	ConditionKindMultiField   ConditionKind = "multi_field"
	ConditionKindHasTag       ConditionKind = "has_tag"
	ConditionKindEmailEvent   ConditionKind = "email_event"
	ConditionKindLeadScore    ConditionKind = "lead_score"
	ConditionKindTimeBased    ConditionKind = "time_based"
	ConditionKindCustom       ConditionKind = "custom"
)

// Operator is the comparison operator set shared by field-compare and
// lead-score conditions.
type Operator string

const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "not_equals"
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "not_contains"
	OperatorGreaterThan    Operator = "greater_than"
	OperatorLessThan       Operator = "less_than"
	OperatorGreaterOrEqual Operator = "greater_or_equal"
	OperatorLessOrEqual    Operator = "less_or_equal"
	OperatorIsEmpty        Operator = "is_empty"
	OperatorIsNotEmpty     Operator = "is_not_empty"
	OperatorStartsWith     Operator = "starts_with"
	OperatorEndsWith       Operator = "ends_with"
)
