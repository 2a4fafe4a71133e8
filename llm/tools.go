package llm

import (
	"encoding/json"
	"fmt"
)

// ToolDef defines a tool the model can select during planning.
type ToolDef struct {
	// Name is the unique identifier for this tool.
	Name string

	// Description explains what the tool does and when to use it.
	Description string

	// Parameters is a JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	// ID is a unique identifier for this tool call, used to match
	// results back to the original call.
	ID string

	// Name is the name of the tool to invoke.
	Name string

	// Arguments contains the tool parameters as a JSON string.
	Arguments string
}

// Validate checks whether the tool definition is usable.
func (t *ToolDef) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if t.Parameters == nil {
		return fmt.Errorf("tool parameters cannot be nil")
	}
	return nil
}

// ParseArguments parses the tool call arguments into v, which must be a
// pointer to the receiving struct or map.
func (c *ToolCall) ParseArguments(v any) error {
	if c.Arguments == "" {
		return fmt.Errorf("no arguments to parse")
	}
	return json.Unmarshal([]byte(c.Arguments), v)
}

// Validate checks whether the tool call is well-formed, including that the
// arguments are valid JSON.
func (c *ToolCall) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("tool call name cannot be empty")
	}
	if c.Arguments == "" {
		return fmt.Errorf("tool call arguments cannot be empty")
	}

	var tmp any
	if err := json.Unmarshal([]byte(c.Arguments), &tmp); err != nil {
		return fmt.Errorf("invalid JSON in arguments: %w", err)
	}

	return nil
}
