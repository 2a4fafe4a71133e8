// Package ratelimit enforces per-provider call budgets. The local
// limiter covers a single process; the Redis limiter shares one budget
// across every agent instance talking to the same provider account.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/springbank-ai/netagent/toolerr"
)

// Budget is the number of calls a provider accepts per window.
type Budget struct {
	Calls  int           `json:"calls" yaml:"calls"`
	Window time.Duration `json:"window" yaml:"window"`
}

// DefaultBudget is applied to providers with no explicit budget.
var DefaultBudget = Budget{Calls: 60, Window: time.Minute}

// Limiter grants or denies a provider call slot.
type Limiter interface {
	// Acquire takes one slot from the provider's current window. When
	// the budget is exhausted it returns a rate-limit error carrying
	// the time until the window resets.
	Acquire(ctx context.Context, provider string) error
}

// window tracks usage inside one fixed interval.
type window struct {
	start time.Time
	used  int
}

// Local is an in-process fixed-window limiter.
type Local struct {
	mu      sync.Mutex
	budgets map[string]Budget
	windows map[string]*window
	now     func() time.Time
}

// NewLocal creates a limiter with the given per-provider budgets.
func NewLocal(budgets map[string]Budget) *Local {
	l := &Local{
		budgets: make(map[string]Budget, len(budgets)),
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for p, b := range budgets {
		l.budgets[p] = b
	}
	return l
}

func (l *Local) budget(provider string) Budget {
	if b, ok := l.budgets[provider]; ok && b.Calls > 0 && b.Window > 0 {
		return b
	}
	return DefaultBudget
}

// Acquire implements Limiter.
func (l *Local) Acquire(_ context.Context, provider string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.budget(provider)
	now := l.now()

	w := l.windows[provider]
	if w == nil || now.Sub(w.start) >= b.Window {
		w = &window{start: now}
		l.windows[provider] = w
	}

	if w.used >= b.Calls {
		reset := b.Window - now.Sub(w.start)
		return rateLimited(provider, b, reset)
	}

	w.used++
	return nil
}

// Remaining reports the unused slots in the provider's current window.
func (l *Local) Remaining(provider string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.budget(provider)
	w := l.windows[provider]
	if w == nil || l.now().Sub(w.start) >= b.Window {
		return b.Calls
	}
	return b.Calls - w.used
}

func rateLimited(provider string, b Budget, reset time.Duration) error {
	if reset < 0 {
		reset = 0
	}
	return toolerr.New(provider, "", toolerr.ErrCodeRateLimited,
		fmt.Sprintf("budget of %d calls per %s exhausted", b.Calls, b.Window)).
		WithRetryAfter(reset)
}
