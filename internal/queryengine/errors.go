package queryengine

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid or missing engine configuration
// key. Not retryable.
type ConfigurationError struct {
	EngineName string
	ErrorCode  string
	Message    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("query engine %q configuration error [%s]: %s", e.EngineName, e.ErrorCode, e.Message)
}

// InitializationError reports that Open failed, or that Execute, Validate or
// Explain was called on an engine that was never opened or has already been
// closed (Close itself never fails).
// Operations on a closed engine fail, they don't panic or hang.
type InitializationError struct {
	EngineName string
	ErrorCode  string
	Message    string
	Cause      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("query engine %q initialization error [%s]: %s", e.EngineName, e.ErrorCode, e.Message)
}
func (e *InitializationError) Unwrap() error { return e.Cause }

// FieldError is one entry of a ValidationError's Errors list.
type FieldError struct {
	Field   string
	Message string
	Code    string
}

// ValidationError aggregates every field-level problem found during the
// VALIDATE stage, rather than failing on the first.
type ValidationError struct {
	EngineName string
	Stage      string
	Errors     []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query engine %q validation failed at stage %q (%d error(s))", e.EngineName, e.Stage, len(e.Errors))
}

// ExecutionError reports a failure at any stage that is not one of the more
// specific kinds (ValidationError, TimeoutError, OptimizationDivergedError).
// It always names the stage that failed and, where available, carries the
// partial result gathered before failure.
type ExecutionError struct {
	EngineName  string
	Stage       string
	ErrorCode   string
	Message     string
	FailedQuery *LogicalQuery
	Partial     *Result
	Cause       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query engine %q failed at stage %q [%s]: %s", e.EngineName, e.Stage, e.ErrorCode, e.Message)
}
func (e *ExecutionError) Unwrap() error { return e.Cause }

// TimeoutError reports that the call's deadline (Context.Deadline) was
// reached before EXECUTE completed. Always retryable from the caller's
// point of view, mirroring internal/sourceprovider.TimeoutError.
type TimeoutError struct {
	ExecutionError
	Elapsed  time.Duration
	Deadline time.Time
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query engine %q timed out after %s at stage %q [%s]", e.EngineName, e.Elapsed, e.Stage, e.ErrorCode)
}

// OptimizationDivergedError is raised when the OPTIMIZE stage's rule set
// keeps reporting changes without converging, rather than looping forever
// or silently returning an unstable plan.
type OptimizationDivergedError struct {
	EngineName string
	Iterations int
	RuleTrace  []string
}

func (e *OptimizationDivergedError) Error() string {
	return fmt.Sprintf("query engine %q: optimization diverged after %d iterations (rules: %v)", e.EngineName, e.Iterations, e.RuleTrace)
}
