// Package errors provides centralized error definitions and error handling
// utilities for the Quorum codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ModelCallError: errors from individual model calls
//   - StreamError: errors from stream production or consumption
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewModelCallError("request failed", cause).WithModel("openai/gpt-4o")
//
//	// Semantic error
//	err := errors.NewNotFoundError("conversation", "abc123")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrMissingAPIKey) { ... }
//
//	var callErr *errors.ModelCallError
//	if errors.As(err, &callErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration-related sentinel errors
var (
	// ErrMissingAPIKey indicates that no OpenRouter API key is configured.
	ErrMissingAPIKey = New("OpenRouter API key not configured")
	// ErrNoCouncilModels indicates that the council model roster is empty.
	ErrNoCouncilModels = New("no council models configured")
	// ErrNoChairmanModel indicates that no chairman model is configured.
	ErrNoChairmanModel = New("no chairman model configured")
)

// Conversation-related sentinel errors
var (
	// ErrConversationNotFound indicates that a conversation could not be found.
	ErrConversationNotFound = New("conversation not found")
	// ErrConversationCorrupted indicates that stored conversation data is unreadable.
	ErrConversationCorrupted = New("conversation data corrupted")
)

// Stream-related sentinel errors
var (
	// ErrStreamCancelled indicates that stream consumption was cancelled.
	ErrStreamCancelled = New("stream cancelled")
	// ErrRetryBudgetExhausted indicates that all stream retry attempts failed.
	ErrRetryBudgetExhausted = New("retry budget exhausted")
)

// General sentinel errors
var (
	// ErrModelCallFailed indicates that a single model call failed.
	ErrModelCallFailed = New("model call failed")
	// ErrEmptyResponse indicates that a model returned no content.
	ErrEmptyResponse = New("model returned empty response")
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// QuorumError is the base interface for all Quorum errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type QuorumError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ModelCallError represents a failure of a single model call. These are
// absorbed by the pipeline stages (failed calls are dropped) but carried in
// logs for diagnosis.
//
// Example:
//
//	err := errors.NewModelCallError("request failed", cause).WithModel("openai/gpt-4o")
type ModelCallError struct {
	baseError
	Model      string
	StatusCode int
}

// NewModelCallError creates a new ModelCallError.
func NewModelCallError(message string, cause error) *ModelCallError {
	return &ModelCallError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			retryable: true,
		},
	}
}

// WithModel adds the model identifier to the error context.
func (e *ModelCallError) WithModel(model string) *ModelCallError {
	e.Model = model
	return e
}

// WithStatusCode adds the HTTP status code to the error context.
func (e *ModelCallError) WithStatusCode(code int) *ModelCallError {
	e.StatusCode = code
	return e
}

// Error returns the formatted error message.
func (e *ModelCallError) Error() string {
	var parts []string
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	prefix := "model call error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("model call error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ModelCallError) Is(target error) bool {
	if _, ok := target.(*ModelCallError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StreamError represents errors from stream production or consumption.
//
// Example:
//
//	err := errors.NewStreamError("transport failed", cause).WithAttempt(2)
type StreamError struct {
	baseError
	Attempt int
}

// NewStreamError creates a new StreamError. Stream errors are retryable by
// default; the consumer's retry budget bounds how often.
func NewStreamError(message string, cause error) *StreamError {
	return &StreamError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			retryable: true,
		},
	}
}

// WithAttempt records which stream attempt produced the error.
func (e *StreamError) WithAttempt(attempt int) *StreamError {
	e.Attempt = attempt
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StreamError) WithRetryable(r bool) *StreamError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *StreamError) Error() string {
	prefix := "stream error"
	if e.Attempt > 0 {
		prefix = fmt.Sprintf("stream error [attempt=%d]", e.Attempt)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StreamError) Is(target error) bool {
	if _, ok := target.(*StreamError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a resource could not be found.
type NotFoundError struct {
	baseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:   fmt.Sprintf("%s not found", resource),
			retryable: false,
		},
		Resource: resource,
		ID:       id,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.Resource == "conversation" && target == ErrConversationNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates that input validation failed.
type ValidationError struct {
	baseError
	Field string
	Value string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:   message,
			cause:     ErrInvalidInput,
			retryable: false,
		},
	}
}

// WithField adds the offending field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the offending value to the error context.
func (e *ValidationError) WithValue(value string) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation failed: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError indicates that an operation timed out.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   fmt.Sprintf("%s timed out", operation),
			cause:     ErrTimeout,
			retryable: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
	}
	return fmt.Sprintf("%s timed out", e.Operation)
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether err is transient and the operation may succeed
// on retry. Errors that don't implement QuorumError are not retryable.
func IsRetryable(err error) bool {
	var qe QuorumError
	if As(err, &qe) {
		return qe.IsRetryable()
	}
	return false
}


