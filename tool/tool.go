// Package tool defines the closed catalog of network-query tools the
// planner may choose from. Each tool binds a name and parameter schema
// to a provider adapter operation; the catalog is fixed at session
// construction and never discovered at runtime.
package tool

import (
	"context"
	"errors"

	"github.com/springbank-ai/netagent/result"
	"github.com/springbank-ai/netagent/schema"
	"github.com/springbank-ai/netagent/toolerr"
)

// Handler executes a tool call against its provider and returns the
// records it produced. Parameters have already been validated against
// the tool's schema by the time a handler runs.
type Handler func(ctx context.Context, params map[string]any) (*result.ToolResult, error)

// Descriptor is the planner-facing description of a tool.
type Descriptor struct {
	// Name is the unique identifier the planner refers to.
	Name string `json:"name"`

	// Description tells the planning oracle what the tool does and
	// when to reach for it.
	Description string `json:"description"`

	// Provider names the adapter that serves this tool.
	Provider string `json:"provider"`

	// Parameters is the JSON schema for the tool's input.
	Parameters schema.JSON `json:"parameters"`
}

// Tool pairs a descriptor with its handler.
type Tool struct {
	Descriptor
	handler Handler
}

// New creates a tool. Name, provider, and handler are required.
func New(d Descriptor, h Handler) (*Tool, error) {
	if d.Name == "" {
		return nil, errors.New("tool name is required")
	}
	if d.Provider == "" {
		return nil, errors.New("tool provider is required")
	}
	if h == nil {
		return nil, errors.New("tool handler is required")
	}
	return &Tool{Descriptor: d, handler: h}, nil
}

// Call validates params against the tool's schema and invokes the
// handler. Validation failures are permanent: retrying the same
// arguments cannot succeed, so they surface immediately.
func (t *Tool) Call(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	if params == nil {
		params = map[string]any{}
	}
	if err := t.Parameters.Validate(params); err != nil {
		return nil, toolerr.New(t.Provider, t.Name, toolerr.ErrCodeInvalidParameters,
			"parameter validation failed").WithCause(err)
	}
	return t.handler(ctx, params)
}
