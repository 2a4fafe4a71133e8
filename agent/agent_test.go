package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springbank-ai/netagent/graph"
	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/result"
	"github.com/springbank-ai/netagent/retry"
	"github.com/springbank-ai/netagent/schema"
	"github.com/springbank-ai/netagent/tool"
	"github.com/springbank-ai/netagent/toolerr"
)

type fakeAdapter struct {
	name  string
	tools []*tool.Tool
}

func (f *fakeAdapter) Name() string        { return f.name }
func (f *fakeAdapter) Tools() []*tool.Tool { return f.tools }

func fakeTool(t *testing.T, providerName, name string, h tool.Handler) *tool.Tool {
	t.Helper()
	tl, err := tool.New(tool.Descriptor{
		Name:        name,
		Description: "test tool " + name,
		Provider:    providerName,
		Parameters: schema.Object(map[string]schema.JSON{
			"query": schema.String(),
			"id":    schema.String(),
		}),
	}, h)
	require.NoError(t, err)
	return tl
}

// scriptedOracle replays the given replies in order. Strings become
// completion content, errors fail the call. Every reply carries a
// fixed token usage so accumulation is observable.
func scriptedOracle(t *testing.T, replies ...any) llm.Completer {
	t.Helper()
	var calls atomic.Int64
	return llm.CompleterFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(replies) {
			return nil, fmt.Errorf("unscripted oracle call %d", i+1)
		}
		switch r := replies[i].(type) {
		case string:
			return &llm.CompletionResponse{
				Content:      r,
				FinishReason: "stop",
				Usage:        llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			}, nil
		case error:
			return nil, r
		default:
			return nil, fmt.Errorf("bad scripted reply %T", r)
		}
	})
}

func entityHandler(id, name string, typ graph.EntityType) tool.Handler {
	return func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
		return &result.ToolResult{
			Provider: "crm",
			Entities: []graph.Entity{{ID: id, Name: name, Type: typ, Provider: "crm"}},
		}, nil
	}
}

func newTestAgent(t *testing.T, oracle llm.Completer, adapters []provider.Adapter, budget Budget) *Agent {
	t.Helper()
	a, err := New(Config{
		Completer: oracle,
		Adapters:  adapters,
		Budget:    budget,
		Executor: retry.NewExecutor().
			WithBaseDelay(time.Millisecond).
			WithMaxDelay(5 * time.Millisecond),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return a
}

func TestNewValidation(t *testing.T) {
	oracle := scriptedOracle(t)
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", entityHandler("p1", "Jane Doe", graph.TypePerson)),
	}}

	t.Run("requires completer", func(t *testing.T) {
		_, err := New(Config{Adapters: []provider.Adapter{adapter}})
		require.Error(t, err)
	})

	t.Run("requires adapters", func(t *testing.T) {
		_, err := New(Config{Completer: oracle})
		require.Error(t, err)
	})

	t.Run("rejects duplicate tool names", func(t *testing.T) {
		dup := &fakeAdapter{name: "other", tools: []*tool.Tool{
			fakeTool(t, "other", "search_people", entityHandler("x", "X", graph.TypePerson)),
		}}
		_, err := New(Config{Completer: oracle, Adapters: []provider.Adapter{adapter, dup}})
		require.Error(t, err)
	})
}

func TestAskHappyPath(t *testing.T) {
	var gotID atomic.Value
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_companies", entityHandler("c1", "Acme Corp", graph.TypeCompany)),
		fakeTool(t, "crm", "get_company_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			gotID.Store(params["id"])
			return &result.ToolResult{
				Provider: "crm",
				Entities: []graph.Entity{{ID: "p1", Name: "Jane Doe", Type: graph.TypePerson, Provider: "crm"}},
				Relationships: []graph.Relationship{
					{SourceID: "p1", TargetID: "c1", Type: "works_at", Confidence: 0.9, Provider: "crm"},
				},
			}, nil
		}),
	}}

	oracle := scriptedOracle(t,
		`{"steps":[
			{"tool":"search_companies","parameters":{"query":"acme"}},
			{"tool":"get_company_people","parameters":{"id":"$step1.entity_id"},"depends_on":[1]}
		]}`,
		"Jane Doe works at Acme Corp, according to crm.",
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "who works at acme?")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe works at Acme Corp, according to crm.", answer.Text)
	assert.Equal(t, Complete, answer.Completeness)
	assert.ElementsMatch(t, []string{"search_companies", "get_company_people"}, answer.Attempted)
	assert.Empty(t, answer.Failed)
	assert.Empty(t, answer.Skipped)
	assert.Equal(t, "c1", gotID.Load(), "dependent step should receive the resolved entity id")

	require.NotNil(t, answer.Snapshot)
	assert.Len(t, answer.Snapshot.Entities, 2)
	assert.Len(t, answer.Snapshot.Relationships, 1)

	// Two oracle calls, 15 total tokens each.
	assert.Equal(t, 30, answer.Usage.TotalTokens)
}

func TestAskOutOfScope(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", entityHandler("p1", "Jane", graph.TypePerson)),
	}}
	oracle := scriptedOracle(t, `{"steps":[]}`)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "what is the weather?")
	require.NoError(t, err)

	assert.Equal(t, outOfScopeAnswer, answer.Text)
	assert.Equal(t, Empty, answer.Completeness)
	assert.Empty(t, answer.Attempted)
}

func TestAskPlanningFailure(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", entityHandler("p1", "Jane", graph.TypePerson)),
	}}
	// The planner retries once, so the failure has to be scripted twice.
	oracle := scriptedOracle(t,
		fmt.Errorf("oracle down"),
		fmt.Errorf("oracle down"),
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "who knows jane?")
	require.NoError(t, err, "a failed plan attempted nothing and is not a session failure")

	assert.Equal(t, Empty, answer.Completeness)
	assert.Contains(t, answer.Text, "could not work out")
	assert.Empty(t, answer.Attempted)
}

func TestAskEmptySnapshot(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			return &result.ToolResult{Provider: "crm"}, nil
		}),
	}}
	oracle := scriptedOracle(t, `{"steps":[{"tool":"search_people","parameters":{"query":"nobody"}}]}`)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "who is nobody?")
	require.NoError(t, err)

	// No oracle synthesis call happens for an empty snapshot; the
	// scripted oracle would have failed on an unscripted second call.
	assert.Equal(t, noDataAnswer, answer.Text)
	assert.Equal(t, Empty, answer.Completeness)
	assert.Equal(t, []string{"search_people"}, answer.Attempted)
}

func TestAskBudgetSkipsSteps(t *testing.T) {
	var dispatched atomic.Int64
	counted := func(id, name string) tool.Handler {
		inner := entityHandler(id, name, graph.TypePerson)
		return func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			dispatched.Add(1)
			return inner(ctx, params)
		}
	}
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_a", counted("a", "Alice")),
		fakeTool(t, "crm", "search_b", counted("b", "Bob")),
		fakeTool(t, "crm", "search_c", counted("c", "Carol")),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[
			{"tool":"search_a","parameters":{}},
			{"tool":"search_b","parameters":{}},
			{"tool":"search_c","parameters":{}}
		]}`,
		"Only Alice was looked up.",
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{MaxToolCalls: 1})
	answer, err := a.Ask(context.Background(), "find everyone")
	require.NoError(t, err)

	assert.Equal(t, int64(1), dispatched.Load(), "budget caps dispatches")
	assert.Equal(t, Partial, answer.Completeness)
	assert.Len(t, answer.Skipped, 2)
	for _, s := range answer.Skipped {
		assert.Contains(t, s, "budget_exhausted")
	}
}

func TestAskProviderFanOut(t *testing.T) {
	var current, peak atomic.Int64
	slow := func(id string) tool.Handler {
		return func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			c := current.Add(1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return &result.ToolResult{
				Provider: "crm",
				Entities: []graph.Entity{{ID: id, Name: id, Type: graph.TypePerson, Provider: "crm"}},
			}, nil
		}
	}
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_a", slow("a")),
		fakeTool(t, "crm", "search_b", slow("b")),
		fakeTool(t, "crm", "search_c", slow("c")),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[
			{"tool":"search_a","parameters":{}},
			{"tool":"search_b","parameters":{}},
			{"tool":"search_c","parameters":{}}
		]}`,
		"done",
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{ProviderFanOut: 1})
	_, err := a.Ask(context.Background(), "find everyone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), peak.Load(), "fan-out of one serializes a provider's steps")
}

func TestAskAllStepsFailed(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			return nil, toolerr.New("crm", "search_people", toolerr.ErrCodeAuthFailed, "bad key")
		}),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[{"tool":"search_people","parameters":{"query":"jane"}}]}`,
		`{"steps":[]}`, // replan offers nothing
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	_, err := a.Ask(context.Background(), "who is jane?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every step failed")
}

func TestAskReplanRecovers(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			return nil, toolerr.New("crm", "search_people", toolerr.ErrCodeAuthFailed, "bad key")
		}),
		fakeTool(t, "crm", "backup_search", entityHandler("p1", "Jane Doe", graph.TypePerson)),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[{"tool":"search_people","parameters":{"query":"jane"}}]}`,
		`{"steps":[{"tool":"backup_search","parameters":{"query":"jane"}}]}`,
		"Jane Doe was found via the backup index.",
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "who is jane?")
	require.NoError(t, err)

	assert.Equal(t, Partial, answer.Completeness, "a failed step keeps the answer partial")
	assert.ElementsMatch(t, []string{"search_people", "backup_search"}, answer.Attempted)
	assert.Len(t, answer.Failed, 1)
	assert.Contains(t, answer.Text, "backup index")
}

func TestAskDeadlineAbort(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			time.Sleep(60 * time.Millisecond)
			return &result.ToolResult{
				Provider: "crm",
				Entities: []graph.Entity{{ID: "p1", Name: "Jane Doe", Type: graph.TypePerson, Provider: "crm"}},
			}, nil
		}),
		fakeTool(t, "crm", "get_network", entityHandler("p2", "John Roe", graph.TypePerson)),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[
			{"tool":"search_people","parameters":{"query":"jane"}},
			{"tool":"get_network","parameters":{"id":"$step1.entity_id"},"depends_on":[1]}
		]}`,
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{MaxDuration: 30 * time.Millisecond})
	answer, err := a.Ask(context.Background(), "who does jane know?")
	require.NoError(t, err)

	// The in-flight step finished past the deadline, the dependent one
	// never started, and synthesis fell back to listing the evidence
	// because the oracle context had expired.
	assert.Equal(t, Partial, answer.Completeness)
	assert.Equal(t, []string{"search_people"}, answer.Attempted)
	require.Len(t, answer.Skipped, 1)
	assert.Contains(t, answer.Skipped[0], "budget_exhausted")
	assert.Contains(t, answer.Text, "Jane Doe")
	require.NotNil(t, answer.Snapshot)
	assert.Len(t, answer.Snapshot.Entities, 1)
}

func TestAskDeadlineEndsRetryWait(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			return nil, toolerr.New("crm", "search_people", toolerr.ErrCodeRateLimited, "throttled").
				WithRetryAfter(3 * time.Second)
		}),
	}}
	oracle := scriptedOracle(t, `{"steps":[{"tool":"search_people","parameters":{"query":"jane"}}]}`)

	// The executor keeps its default delay cap so the provider's
	// retry-after hint is honored as given.
	a, err := New(Config{
		Completer: oracle,
		Adapters:  []provider.Adapter{adapter},
		Budget:    Budget{MaxDuration: 50 * time.Millisecond},
		Executor:  retry.NewExecutor().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = a.Ask(context.Background(), "who is jane?")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "every step failed")
	assert.Less(t, elapsed, time.Second, "the session ends at its deadline, not after the retry-after wait")
}

func TestAskDanglingEdgeDowngrades(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", func(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
			return &result.ToolResult{
				Provider: "crm",
				Entities: []graph.Entity{{ID: "p1", Name: "Jane Doe", Type: graph.TypePerson, Provider: "crm"}},
				Relationships: []graph.Relationship{
					// c9 is never returned by any step, so the edge
					// cannot be resolved.
					{SourceID: "p1", TargetID: "c9", Type: "works_at", Confidence: 0.9, Provider: "crm"},
				},
			}, nil
		}),
	}}
	oracle := scriptedOracle(t,
		`{"steps":[{"tool":"search_people","parameters":{"query":"jane"}}]}`,
		"Jane Doe was found, but her employer could not be resolved.",
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "where does jane work?")
	require.NoError(t, err)

	assert.Equal(t, Partial, answer.Completeness, "a dropped edge means the evidence is incomplete")
	require.NotNil(t, answer.Snapshot)
	assert.Empty(t, answer.Snapshot.Relationships)
	assert.Equal(t, 1, answer.Snapshot.DroppedRelationships)
}

func TestAskSynthesisFallback(t *testing.T) {
	adapter := &fakeAdapter{name: "crm", tools: []*tool.Tool{
		fakeTool(t, "crm", "search_people", entityHandler("p1", "Jane Doe", graph.TypePerson)),
	}}
	// Plan succeeds, then every synthesis attempt fails.
	oracle := scriptedOracle(t,
		`{"steps":[{"tool":"search_people","parameters":{"query":"jane"}}]}`,
		fmt.Errorf("oracle down"),
		fmt.Errorf("oracle down"),
		fmt.Errorf("oracle down"),
	)

	a := newTestAgent(t, oracle, []provider.Adapter{adapter}, Budget{})
	answer, err := a.Ask(context.Background(), "who is jane?")
	require.NoError(t, err)

	assert.Equal(t, Partial, answer.Completeness)
	assert.Contains(t, answer.Text, "Jane Doe")
	assert.Contains(t, answer.Text, "crm")
}
