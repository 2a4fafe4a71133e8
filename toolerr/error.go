// Package toolerr provides structured error types for provider tool calls.
//
// This package defines standard error codes and a structured Error type
// that includes provider context, operation details, error codes, and cause
// chains. It integrates with Go's standard errors package for error wrapping
// and unwrapping, and carries the classification the retry executor and the
// orchestration loop use to decide between retrying, re-planning, and
// giving up.
package toolerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Standard error codes used across providers for consistent error reporting.
const (
	// ErrCodeInvalidParameters indicates a tool call with missing or
	// ill-typed parameters. Raised before any network traffic.
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"

	// ErrCodeNormalization indicates a well-formed HTTP response whose
	// body could not be mapped into entities and relationships.
	ErrCodeNormalization = "NORMALIZATION_ERROR"

	// ErrCodeValidation indicates normalized output that failed schema
	// validation (empty entity ids, unknown entity types, ...).
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeRateLimited indicates the provider returned HTTP 429.
	// The RetryAfter field carries the provider's hint when present.
	ErrCodeRateLimited = "RATE_LIMITED"

	// ErrCodeNetwork indicates a transport-level failure (DNS, connection
	// reset, TLS) before a response was received.
	ErrCodeNetwork = "NETWORK_ERROR"

	// ErrCodeTimeout indicates a single attempt exceeded its time bound.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeAuthFailed indicates the provider rejected the credentials
	// (HTTP 401 or 403).
	ErrCodeAuthFailed = "AUTH_FAILED"

	// ErrCodeProviderError indicates a provider-side failure (HTTP 5xx).
	ErrCodeProviderError = "PROVIDER_ERROR"

	// ErrCodeNotFound indicates the addressed resource does not exist
	// (HTTP 404).
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodePlanning indicates the planner could not produce an
	// executable plan (malformed step references, dependency cycles).
	ErrCodePlanning = "PLANNING_ERROR"

	// ErrCodeBudgetExceeded indicates the session ran out of tool-call
	// budget or wall-clock time before the work completed.
	ErrCodeBudgetExceeded = "BUDGET_EXCEEDED"
)

// Error is a structured error type for provider tool operations.
// It provides context about which provider and tool failed, includes a
// standard error code, and can wrap underlying errors.
type Error struct {
	// Provider is the name of the data provider (e.g., "affinity", "harmonic").
	Provider string

	// Operation is the tool or operation that failed (e.g., "search_companies").
	Operation string

	// Code is a standard error code constant.
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]any

	// Cause is the underlying error that caused this error.
	Cause error

	// Class categorizes the error for retry and re-planning decisions.
	Class ErrorClass `json:"class,omitempty"`

	// RetryAfter is the provider-supplied wait hint for rate-limited
	// calls. Zero when the provider gave none.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// New creates a new structured tool error. The class defaults to the
// standard classification for the code.
func New(provider, operation, code, message string) *Error {
	return &Error{
		Provider:  provider,
		Operation: operation,
		Code:      code,
		Message:   message,
		Class:     DefaultClassForCode(code),
	}
}

// WithCause adds an underlying error and returns the same instance for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails adds additional context and returns the same instance for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithClass overrides the error classification and returns the same
// instance for chaining.
func (e *Error) WithClass(class ErrorClass) *Error {
	e.Class = class
	return e
}

// WithRetryAfter records a provider-supplied wait hint and returns the
// same instance for chaining.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// Error implements the error interface.
// It formats the error as: "provider [operation/CODE]: message: cause".
func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Provider, e.Operation, e.Code))

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause error.
// This enables errors.Is() and errors.As() to work with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality for errors.Is(). Two Error values are equal
// when they share the same Provider, Operation, and Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Provider == t.Provider && e.Operation == t.Operation && e.Code == t.Code
}

// As implements error type assertion for errors.As().
func (e *Error) As(target any) bool {
	t, ok := target.(**Error)
	if !ok {
		return false
	}
	*t = e
	return true
}

// CodeOf extracts the error code from err when it wraps a *Error, or ""
// otherwise.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// RetryAfterOf extracts a provider wait hint from err, or zero when none
// is attached.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
