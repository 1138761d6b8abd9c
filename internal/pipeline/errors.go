package pipeline

import "fmt"

// The types below are the pipeline-facing half of the error taxonomy:
// pre-processors and executors raise these, and the dispatcher
// (internal/dispatcher) classifies a failed Definition.Run by unwrapping
// down to one of these to pick a Status.

// ValidationError indicates the input did not satisfy a schema or
// business rule; maps to StatusBadRequest.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Message)
}

// ValidationErrors aggregates multiple field failures, mirroring
// the "(field, message, code)" list shape for QueryValidationException.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

// AuthorizationError indicates the principal is not authenticated
// (Authenticated=false → StatusUnauthorized) or not permitted
// (Authenticated=true → StatusForbidden).
type AuthorizationError struct {
	Authenticated bool
	Message       string
}

func (e *AuthorizationError) Error() string {
	if !e.Authenticated {
		return fmt.Sprintf("unauthorized: %s", e.Message)
	}
	return fmt.Sprintf("forbidden: %s", e.Message)
}

// NotFoundError indicates an unknown capability, action, resource, or
// source; maps to StatusNotFound.
type NotFoundError struct {
	ResourceType string
	ResourceName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.ResourceType, e.ResourceName)
}

// TimeoutError indicates a deadline was exceeded; maps to
// StatusServiceUnavailable. Retryable by convention.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }
