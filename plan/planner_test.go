package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/toolerr"
)

func catalog() []llm.ToolDef {
	return []llm.ToolDef{
		{Name: "search_companies", Description: "search companies"},
		{Name: "get_company_people", Description: "people at a company"},
	}
}

// scriptedCompleter replies with canned content in order.
func scriptedCompleter(replies ...string) llm.Completer {
	i := 0
	return llm.CompleterFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if i >= len(replies) {
			return nil, errors.New("no more scripted replies")
		}
		content := replies[i]
		i++
		return &llm.CompletionResponse{Content: content, FinishReason: "stop"}, nil
	})
}

func TestPlanParsesSteps(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{
		"steps": [
			{"tool": "search_companies", "parameters": {"query": "acme"}},
			{"tool": "get_company_people", "parameters": {"company_id": "$step1.entity_id"}, "depends_on": [1]}
		]
	}`))

	pl, err := p.Plan(context.Background(), "Who works at Acme?", catalog())
	require.NoError(t, err)
	require.Len(t, pl.Steps, 2)

	assert.Equal(t, "step1", pl.Steps[0].ID)
	assert.Equal(t, StatusPending, pl.Steps[0].Status)
	assert.Equal(t, []string{"step1"}, pl.Steps[1].DependsOn)
}

func TestPlanInfersDependencyFromReference(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{
		"steps": [
			{"tool": "search_companies", "parameters": {"query": "acme"}},
			{"tool": "get_company_people", "parameters": {"company_id": "$step1.entity_id"}}
		]
	}`))

	pl, err := p.Plan(context.Background(), "q", catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"step1"}, pl.Steps[1].DependsOn,
		"reference implies the dependency even without depends_on")
}

func TestPlanUnknownToolSkipped(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{
		"steps": [{"tool": "hack_the_planet", "parameters": {}}]
	}`))

	pl, err := p.Plan(context.Background(), "q", catalog())
	require.NoError(t, err)
	require.Len(t, pl.Steps, 1)
	assert.Equal(t, StatusSkipped, pl.Steps[0].Status)
	assert.Equal(t, ReasonUnknownTool, pl.Steps[0].Reason)
}

func TestPlanEmptySteps(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{"steps": []}`))

	pl, err := p.Plan(context.Background(), "what is the weather", catalog())
	require.NoError(t, err)
	assert.Empty(t, pl.Steps)
}

func TestPlanStripsMarkdownFence(t *testing.T) {
	p := NewPlanner(scriptedCompleter("```json\n{\"steps\": [{\"tool\": \"search_companies\", \"parameters\": {\"query\": \"x\"}}]}\n```"))

	pl, err := p.Plan(context.Background(), "q", catalog())
	require.NoError(t, err)
	assert.Len(t, pl.Steps, 1)
}

func TestPlanMalformedReply(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`here is your plan: search companies first`))

	_, err := p.Plan(context.Background(), "q", catalog())
	require.Error(t, err)
	assert.Equal(t, toolerr.ErrCodePlanning, toolerr.CodeOf(err))
}

func TestPlanCycleRejected(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{
		"steps": [
			{"tool": "search_companies", "parameters": {}, "depends_on": [2]},
			{"tool": "get_company_people", "parameters": {}, "depends_on": [1]}
		]
	}`))

	_, err := p.Plan(context.Background(), "q", catalog())
	require.Error(t, err)
	assert.Equal(t, toolerr.ErrCodePlanning, toolerr.CodeOf(err))
}

func TestPlanOracleRetried(t *testing.T) {
	calls := 0
	c := llm.CompleterFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("oracle hiccup")
		}
		return &llm.CompletionResponse{Content: `{"steps": []}`}, nil
	})

	_, err := NewPlanner(c).Plan(context.Background(), "q", catalog())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestReplanMarksSteps(t *testing.T) {
	p := NewPlanner(scriptedCompleter(`{
		"steps": [{"tool": "search_companies", "parameters": {"query": "acme inc"}}]
	}`))

	failed := &Step{ID: "step1", Tool: "get_company_people", Status: StatusFailed}
	pl, err := p.Replan(context.Background(), "q", catalog(), failed, "company not found")
	require.NoError(t, err)
	require.Len(t, pl.Steps, 1)
	assert.True(t, pl.Steps[0].Replanned)
}
