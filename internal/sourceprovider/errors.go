package sourceprovider

import (
	"fmt"
	"time"
)

// The sealed failure kinds a SourceProvider can return. Each exposes
// SourceName, a stable ErrorCode, and a Retryable flag.

// ConfigError reports missing/invalid configuration keys. Not retryable.
type ConfigError struct {
	SourceName string
	ErrorCode  string
	Message    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source %q config error [%s]: %s", e.SourceName, e.ErrorCode, e.Message)
}
func (e *ConfigError) Retryable() bool { return false }

// ConnectionError reports an I/O or handshake failure. Retryable.
type ConnectionError struct {
	SourceName string
	ErrorCode  string
	Message    string
	Cause      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("source %q connection error [%s]: %s", e.SourceName, e.ErrorCode, e.Message)
}
func (e *ConnectionError) Retryable() bool { return true }
func (e *ConnectionError) Unwrap() error   { return e.Cause }

// InitializationError reports that provider startup failed. Not retryable.
type InitializationError struct {
	SourceName string
	ErrorCode  string
	Message    string
	Cause      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("source %q initialization error [%s]: %s", e.SourceName, e.ErrorCode, e.Message)
}
func (e *InitializationError) Retryable() bool { return false }
func (e *InitializationError) Unwrap() error   { return e.Cause }

// ExecutionError reports a failed query, optionally carrying the failed
// query and any partial rows gathered before failure.
type ExecutionError struct {
	SourceName   string
	ErrorCode    string
	Message      string
	FailedQuery  *SourceQuery
	PartialRows  []Row
	Cause        error
	IsRetryable  bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("source %q execution error [%s]: %s", e.SourceName, e.ErrorCode, e.Message)
}
func (e *ExecutionError) Retryable() bool { return e.IsRetryable }
func (e *ExecutionError) Unwrap() error   { return e.Cause }

// TimeoutError inherits ExecutionError's shape and is
// always retryable.
type TimeoutError struct {
	ExecutionError
	Elapsed   time.Duration
	Configured time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("source %q timed out after %s (configured %s) [%s]",
		e.SourceName, e.Elapsed, e.Configured, e.ErrorCode)
}
func (e *TimeoutError) Retryable() bool { return true }

// RetryableError is implemented by every sealed error kind above; callers
// can type-assert to it instead of switching on concrete types.
type RetryableError interface {
	error
	Retryable() bool
}

var (
	_ RetryableError = (*ConfigError)(nil)
	_ RetryableError = (*ConnectionError)(nil)
	_ RetryableError = (*InitializationError)(nil)
	_ RetryableError = (*ExecutionError)(nil)
	_ RetryableError = (*TimeoutError)(nil)
)
