// Package services implements the business operations behind the HTTP API:
// workflow authoring, execution enqueueing and per-workflow analytics.
package services

import (
	"errors"
	"fmt"
)

// Validation errors map to 400 responses.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
	ErrTriggerNodeRequired  = errors.New("workflow must have a trigger node")
	ErrDanglingEdge         = errors.New("edge references a node that does not exist")
	ErrInvalidStatus        = errors.New("invalid workflow status")
)

// Conflict errors map to 409 responses.
var (
	ErrCannotModifyActive    = errors.New("cannot modify an active workflow")
	ErrCannotActivateArchive = errors.New("cannot activate an archived workflow")
	ErrWorkflowNotActive     = errors.New("workflow is not active")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should produce HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrDanglingEdge) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsConflictError checks if an error should produce HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyActive) ||
		errors.Is(err, ErrCannotActivateArchive) ||
		errors.Is(err, ErrWorkflowNotActive)
}

// NewValidationError creates a validation error with operation context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}
