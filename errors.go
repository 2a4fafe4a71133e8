package netagent

import (
	"errors"
	"fmt"
)

// Sentinel errors for common client error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownProvider indicates the configuration names a provider the
	// client has no adapter for.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingCredential indicates a provider's API key could not be
	// resolved from the environment.
	ErrMissingCredential = errors.New("missing credential")
)

// Error kinds categorize client errors by their type.
const (
	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindExecution represents errors that occur while answering a question.
	KindExecution = "execution"
)

// ClientError wraps underlying errors with the operation that failed and
// the category of error. It supports errors.Is and errors.As through
// Unwrap.
type ClientError struct {
	// Op is the operation that failed (e.g., "NewClient", "Client.Ask").
	Op string

	// Kind categorizes the error (KindConfiguration, KindExecution).
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *ClientError) Unwrap() error {
	return e.Err
}

func configError(op string, err error) error {
	return &ClientError{Op: op, Kind: KindConfiguration, Err: err}
}
