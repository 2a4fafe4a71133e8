package toolerr

import (
	"context"
	"errors"
	"net"
)

// ErrorClass categorizes errors by their nature so the retry executor and
// the orchestration loop can reason about how to handle a failure.
type ErrorClass string

const (
	// ErrorClassTransient indicates temporary failures that may resolve
	// on their own. Examples: network timeouts, rate limits, 5xx responses.
	// Transient failures are retried with backoff.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates non-recoverable failures.
	// Examples: missing resources, rejected credentials, other 4xx
	// responses. Permanent failures propagate immediately.
	ErrorClassPermanent ErrorClass = "permanent"

	// ErrorClassSemantic indicates input or output shape issues
	// (invalid parameters, normalization or validation failures).
	// Semantic failures are never retried as-is but are surfaced to the
	// planner, which may propose an alternative step.
	ErrorClassSemantic ErrorClass = "semantic"
)

// DefaultClassForCode returns the default error class for a given error code.
func DefaultClassForCode(code string) ErrorClass {
	switch code {
	case ErrCodeInvalidParameters, ErrCodeNormalization, ErrCodeValidation:
		return ErrorClassSemantic
	case ErrCodeRateLimited, ErrCodeNetwork, ErrCodeTimeout, ErrCodeProviderError:
		return ErrorClassTransient
	case ErrCodeAuthFailed, ErrCodeNotFound, ErrCodePlanning, ErrCodeBudgetExceeded:
		return ErrorClassPermanent
	default:
		// Unknown error codes default to transient so a flaky provider
		// quirk does not kill a step outright.
		return ErrorClassTransient
	}
}

// ClassOf determines the class of an arbitrary error.
//
// Structured *Error values carry their own class. Context deadline
// expiry and net timeouts are transient. Everything else defaults to
// transient, matching DefaultClassForCode.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ErrorClassTransient
	}

	var te *Error
	if errors.As(err, &te) {
		if te.Class != "" {
			return te.Class
		}
		return DefaultClassForCode(te.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTransient
	}

	return ErrorClassTransient
}

// IsTransient reports whether err should be retried by the executor.
func IsTransient(err error) bool {
	return ClassOf(err) == ErrorClassTransient
}

// IsPermanent reports whether err is terminal for its step.
func IsPermanent(err error) bool {
	return ClassOf(err) == ErrorClassPermanent
}

// IsSemantic reports whether err is an input/output shape problem that a
// re-plan might route around.
func IsSemantic(err error) bool {
	return ClassOf(err) == ErrorClassSemantic
}
