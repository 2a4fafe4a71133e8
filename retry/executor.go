// Package retry executes tool calls with bounded retries. Transient
// failures are retried with exponential backoff and jitter; permanent
// and semantic failures propagate on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/springbank-ai/netagent/toolerr"
)

const (
	// DefaultMaxAttempts bounds retries per tool call.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay seeds the exponential backoff schedule.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps any single backoff wait, including
	// provider-supplied Retry-After hints.
	DefaultMaxDelay = 30 * time.Second
)

// Executor retries an operation according to its error class.
type Executor struct {
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// jitter maps a computed delay onto [d/2, d).
	jitter func(d time.Duration) time.Duration
}

// NewExecutor creates an executor with the default schedule.
func NewExecutor() *Executor {
	return &Executor{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		logger:      slog.Default(),
		sleep:       sleepCtx,
		jitter: func(d time.Duration) time.Duration {
			return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		},
	}
}

// WithMaxAttempts sets the attempt ceiling. Values below 1 are ignored.
func (e *Executor) WithMaxAttempts(n int) *Executor {
	if n >= 1 {
		e.maxAttempts = n
	}
	return e
}

// WithBaseDelay sets the first backoff delay.
func (e *Executor) WithBaseDelay(d time.Duration) *Executor {
	if d > 0 {
		e.baseDelay = d
	}
	return e
}

// WithMaxDelay caps the backoff delay.
func (e *Executor) WithMaxDelay(d time.Duration) *Executor {
	if d > 0 {
		e.maxDelay = d
	}
	return e
}

// WithAttemptTimeout bounds each individual attempt. Zero leaves
// attempts unbounded.
func (e *Executor) WithAttemptTimeout(d time.Duration) *Executor {
	e.attemptTimeout = d
	return e
}

// WithLogger sets the logger retries are reported on.
func (e *Executor) WithLogger(l *slog.Logger) *Executor {
	if l != nil {
		e.logger = l
	}
	return e
}

// Do runs fn until it succeeds, fails permanently, or exhausts the
// attempt budget. It returns the number of attempts made alongside the
// final error. The operation name is used for logging only.
//
// ctx gates the schedule, not the attempt: an expiring ctx ends backoff
// waits early and stops new attempts from starting, while the attempt
// already in flight runs to completion (bounded only by the per-attempt
// timeout).
func (e *Executor) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = e.runAttempt(ctx, operation, fn)
		if lastErr == nil {
			return attempt, nil
		}

		class := toolerr.ClassOf(lastErr)
		if class != toolerr.ErrorClassTransient {
			return attempt, lastErr
		}
		if attempt == e.maxAttempts {
			break
		}

		delay := e.nextDelay(attempt, lastErr)
		e.logger.Warn("retrying tool call",
			"operation", operation,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr)

		if err := e.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}

	return e.maxAttempts, fmt.Errorf("%s failed after %d attempts: %w", operation, e.maxAttempts, lastErr)
}

// runAttempt runs fn detached from the caller's cancellation, under the
// per-attempt deadline only, and rewrites that deadline's expiry into a
// transient timeout error, so the schedule treats a slow provider the
// same as a flaky one. Errors that already carry a code keep it: a
// permanent error that happens to wrap a deadline expiry must not come
// back retryable.
func (e *Executor) runAttempt(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	actx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if e.attemptTimeout > 0 {
		actx, cancel = context.WithTimeout(actx, e.attemptTimeout)
	}
	defer cancel()

	err := fn(actx)
	if err != nil && toolerr.CodeOf(err) == "" && errors.Is(err, context.DeadlineExceeded) {
		return toolerr.New("", operation, toolerr.ErrCodeTimeout,
			fmt.Sprintf("attempt exceeded %s", e.attemptTimeout)).WithCause(err)
	}
	return err
}

// nextDelay computes the wait before the next attempt. A Retry-After
// hint from the provider overrides the exponential schedule; both are
// capped at the configured maximum.
func (e *Executor) nextDelay(attempt int, err error) time.Duration {
	if hint := toolerr.RetryAfterOf(err); hint > 0 {
		return min(hint, e.maxDelay)
	}

	d := e.baseDelay << (attempt - 1)
	if d > e.maxDelay || d <= 0 {
		d = e.maxDelay
	}
	return min(e.jitter(d), e.maxDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
