// Package result defines the envelope a tool call returns and the
// validator that grades it before it is handed to the aggregator.
package result

import (
	"github.com/springbank-ai/netagent/graph"
)

// ToolResult is the outcome of a single executed plan step.
type ToolResult struct {
	// StepID identifies the plan step that produced this result.
	StepID string `json:"step_id"`

	// Tool is the name of the tool that was invoked.
	Tool string `json:"tool"`

	// Provider names the adapter that served the call.
	Provider string `json:"provider"`

	// Entities holds the raw provider records the call returned.
	Entities []graph.Entity `json:"entities,omitempty"`

	// Relationships holds the raw edges the call returned.
	Relationships []graph.Relationship `json:"relationships,omitempty"`

	// LatencyMS is the wall-clock duration of the call, including
	// retries, in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Attempts counts how many attempts the executor made.
	Attempts int `json:"attempts"`

	// Truncated is set when the adapter hit its page ceiling and the
	// provider reported more data than was fetched.
	Truncated bool `json:"truncated,omitempty"`
}

// IsEmpty reports whether the call succeeded but returned no records.
func (r *ToolResult) IsEmpty() bool {
	return len(r.Entities) == 0 && len(r.Relationships) == 0
}
