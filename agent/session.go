// Package agent drives one question through planning, execution,
// aggregation, and synthesis. A session owns all mutable state for a
// query and is discarded when the answer returns.
package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/springbank-ai/netagent/graph"
	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/plan"
)

// State names the orchestration loop's position.
type State string

const (
	StatePlanning     State = "planning"
	StateExecuting    State = "executing"
	StateAggregating  State = "aggregating"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// Completeness grades the final answer.
type Completeness string

const (
	// Complete means every planned step succeeded.
	Complete Completeness = "complete"

	// Partial means some steps failed, were skipped, or the session
	// was cut short by a budget.
	Partial Completeness = "partial"

	// Empty means no usable data was gathered.
	Empty Completeness = "empty"
)

// Answer is the session's final product.
type Answer struct {
	// Text is the synthesized, provider-attributed response.
	Text string `json:"text"`

	// Completeness states how much of the plan backs the text.
	Completeness Completeness `json:"completeness"`

	// Attempted lists the tools that were actually invoked.
	Attempted []string `json:"attempted,omitempty"`

	// Failed lists invoked tools that ended in failure, with reasons.
	Failed []string `json:"failed,omitempty"`

	// Skipped lists planned tools that never ran, with reasons.
	Skipped []string `json:"skipped,omitempty"`

	// Snapshot is the resolved evidence the text was grounded in,
	// available to callers that want to render it.
	Snapshot *graph.Snapshot `json:"snapshot,omitempty"`

	// Usage accumulates oracle token consumption across planning and
	// synthesis.
	Usage llm.TokenUsage `json:"usage"`
}

// session is the per-query mutable state. All step goroutines funnel
// results through the mutex; the aggregator itself is also safe but
// outputs and counters are not.
type session struct {
	id       string
	question string
	state    State
	started  time.Time

	plan    *plan.Plan
	planner *plan.Planner
	oracle  llm.Completer
	agg     *graph.Aggregator

	mu        sync.Mutex
	outputs   map[string]map[string]any
	callsUsed int
	warnings  []string
	replanned map[string]bool
	usage     llm.TokenUsage
}

func newSession(question string) *session {
	return &session{
		id:        uuid.NewString(),
		question:  question,
		state:     StatePlanning,
		started:   time.Now(),
		agg:       graph.NewAggregator(),
		outputs:   make(map[string]map[string]any),
		replanned: make(map[string]bool),
	}
}

// reserveCall takes one slot from the call budget.
func (s *session) reserveCall(max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callsUsed >= max {
		return false
	}
	s.callsUsed++
	return true
}

func (s *session) recordOutput(stepID string, out map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[stepID] = out
}

func (s *session) snapshotOutputs() map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]map[string]any, len(s.outputs))
	for k, v := range s.outputs {
		copied[k] = v
	}
	return copied
}

func (s *session) addWarnings(ws []string) {
	if len(ws) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, ws...)
}

func (s *session) addUsage(u llm.TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = s.usage.Add(u)
}

// tally summarizes plan state for the answer.
func (s *session) tally() (attempted, failed, skipped []string) {
	for _, st := range s.plan.Steps {
		label := st.Tool
		switch st.Status {
		case plan.StatusSucceeded:
			attempted = append(attempted, label)
		case plan.StatusFailed:
			attempted = append(attempted, label)
			failed = append(failed, label+": "+st.Reason)
		case plan.StatusSkipped:
			skipped = append(skipped, label+": "+st.Reason)
		}
	}
	return attempted, failed, skipped
}
