package toolerr

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FromHTTPStatus maps an HTTP response status to a structured Error.
//
// Status mapping:
//   - 429 -> RATE_LIMITED (transient), with RetryAfter parsed from the
//     Retry-After header when present
//   - 401, 403 -> AUTH_FAILED (permanent)
//   - 404 -> NOT_FOUND (permanent)
//   - other 4xx -> INVALID_PARAMETERS (permanent): the request itself was
//     malformed from the provider's point of view and retrying cannot help
//   - 5xx -> PROVIDER_ERROR (transient)
//
// The retryAfter argument is the raw Retry-After header value; an empty
// string means the header was absent.
func FromHTTPStatus(provider, operation string, status int, retryAfter string) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		e := New(provider, operation, ErrCodeRateLimited,
			fmt.Sprintf("provider rate limit hit (HTTP %d)", status))
		if d, ok := ParseRetryAfter(retryAfter); ok {
			e = e.WithRetryAfter(d)
		}
		return e
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(provider, operation, ErrCodeAuthFailed,
			fmt.Sprintf("provider rejected credentials (HTTP %d)", status))
	case status == http.StatusNotFound:
		return New(provider, operation, ErrCodeNotFound,
			fmt.Sprintf("resource not found (HTTP %d)", status))
	case status >= 400 && status < 500:
		e := New(provider, operation, ErrCodeInvalidParameters,
			fmt.Sprintf("provider rejected request (HTTP %d)", status))
		// A provider-side 4xx is terminal, not something parameter
		// re-validation on our side can recover within the same step.
		return e.WithClass(ErrorClassPermanent)
	default:
		return New(provider, operation, ErrCodeProviderError,
			fmt.Sprintf("provider failure (HTTP %d)", status))
	}
}

// ParseRetryAfter parses a Retry-After header value. Both the
// delta-seconds and HTTP-date forms are accepted. Returns false when the
// value is empty or unparseable.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}
