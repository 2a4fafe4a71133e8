package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/parser"
	"github.com/springbank-ai/netagent/retry"
)

const plannerSystemPrompt = `You plan tool calls for a venture-capital network assistant.
Given the user's question and the tool catalog, respond with JSON only, no prose:

{"steps": [{"tool": "<name>", "parameters": {...}, "depends_on": [<step numbers>]}]}

Rules:
- Use only tools from the catalog, with their declared parameters.
- Steps are numbered from 1 in the order listed.
- A parameter may reference an earlier step's output as "$stepN.field".
  Available fields: entity_id, entity_ids, entity_name, entity_count.
- If the question is unrelated to the professional network, return {"steps": []}.`

// Planner asks the completion oracle for a plan and validates it
// against the tool catalog.
type Planner struct {
	completer llm.Completer
	exec      *retry.Executor
	logger    *slog.Logger
}

// NewPlanner creates a planner. Oracle calls get a smaller retry cap
// than provider calls since each one is expensive.
func NewPlanner(c llm.Completer) *Planner {
	return &Planner{
		completer: c,
		exec:      retry.NewExecutor().WithMaxAttempts(2),
		logger:    slog.Default(),
	}
}

// WithLogger sets the planner's logger.
func (p *Planner) WithLogger(l *slog.Logger) *Planner {
	if l != nil {
		p.logger = l
	}
	return p
}

// wire shapes for the oracle's JSON reply.
type planReply struct {
	Steps []stepReply `json:"steps"`
}

type stepReply struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	DependsOn  []int          `json:"depends_on"`
}

// Plan produces a validated plan for the question. Steps naming tools
// outside the catalog come back marked skipped, not dropped, so the
// final answer can report them.
func (p *Planner) Plan(ctx context.Context, question string, tools []llm.ToolDef) (*Plan, error) {
	return p.request(ctx, question, tools, llm.UserMessage(question))
}

// Replan asks for an alternative after a step failed terminally. The
// failure context tells the oracle what not to repeat. Replanned steps
// are flagged so the one-replan-per-step cap holds.
func (p *Planner) Replan(ctx context.Context, question string, tools []llm.ToolDef, failed *Step, failure string) (*Plan, error) {
	prompt := fmt.Sprintf(
		"%s\n\nStep %s (tool %s) failed: %s\nPropose an alternative plan for what is still missing. Do not repeat the failed call with identical parameters.",
		question, failed.ID, failed.Tool, failure)

	pl, err := p.request(ctx, question, tools, llm.UserMessage(prompt))
	if err != nil {
		return nil, err
	}
	for _, s := range pl.Steps {
		s.Replanned = true
	}
	return pl, nil
}

func (p *Planner) request(ctx context.Context, question string, tools []llm.ToolDef, msg llm.Message) (*Plan, error) {
	req := llm.NewCompletionRequest(
		[]llm.Message{llm.SystemMessage(plannerSystemPrompt), msg},
		llm.WithTools(tools...),
		llm.WithTemperature(0),
	)

	var resp *llm.CompletionResponse
	_, err := p.exec.Do(ctx, "plan", func(ctx context.Context) error {
		var cerr error
		resp, cerr = p.completer.Complete(ctx, req)
		return cerr
	})
	if err != nil {
		return nil, planningError(fmt.Sprintf("oracle unavailable: %v", err))
	}

	pl, err := p.parse(resp.Content, tools)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("plan produced",
		"question", question,
		"steps", len(pl.Steps))
	return pl, nil
}

// parse decodes the oracle's reply and builds a validated plan.
func (p *Planner) parse(content string, tools []llm.ToolDef) (*Plan, error) {
	reply, err := parser.Decode[planReply](content)
	if err != nil {
		return nil, planningError(fmt.Sprintf("oracle reply is not a plan: %v", err))
	}

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}

	pl := &Plan{}
	for i, sr := range reply.Steps {
		step := &Step{
			ID:         fmt.Sprintf("step%d", i+1),
			Tool:       sr.Tool,
			Parameters: sr.Parameters,
			Status:     StatusPending,
		}
		if step.Parameters == nil {
			step.Parameters = map[string]any{}
		}

		for _, dep := range sr.DependsOn {
			step.DependsOn = append(step.DependsOn, fmt.Sprintf("step%d", dep))
		}
		// Output references imply dependencies.
		for _, ref := range referencedSteps(step.Parameters) {
			if !contains(step.DependsOn, ref) {
				step.DependsOn = append(step.DependsOn, ref)
			}
		}

		if !known[sr.Tool] {
			step.Status = StatusSkipped
			step.Reason = ReasonUnknownTool
			p.logger.Warn("plan step names unknown tool", "step", step.ID, "tool", sr.Tool)
		}

		pl.Steps = append(pl.Steps, step)
	}

	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return pl, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
