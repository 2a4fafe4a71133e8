package affinity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springbank-ai/netagent/graph"
	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/toolerr"
)

// newTestAdapter points an adapter at a stub Affinity server.
func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := New(provider.Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		MaxPages: 3,
	})
	require.NoError(t, err)
	return a
}

func callTool(t *testing.T, a *Adapter, name string, params map[string]any) (*toolCallResult, error) {
	t.Helper()

	for _, tl := range a.Tools() {
		if tl.Name == name {
			res, err := tl.Call(context.Background(), params)
			if err != nil {
				return nil, err
			}
			return &toolCallResult{res.Entities, res.Relationships, res.Truncated}, nil
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil, nil
}

type toolCallResult struct {
	Entities      []graph.Entity
	Relationships []graph.Relationship
	Truncated     bool
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(provider.Config{})
	assert.Error(t, err)
}

func TestToolCatalog(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})

	names := make([]string, 0, len(a.Tools()))
	for _, tl := range a.Tools() {
		names = append(names, tl.Name)
		assert.Equal(t, Name, tl.Provider)
	}
	assert.ElementsMatch(t, []string{
		"search_persons", "search_organizations", "get_person",
		"get_organization", "get_relationship_strengths", "get_interactions",
	}, names)
}

func TestSearchPersons(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/persons", r.URL.Path)
		assert.Equal(t, "jane", r.URL.Query().Get("term"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "basic auth expected")
		assert.Empty(t, user, "username must be empty")
		assert.Equal(t, "test-key", pass)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"persons": []map[string]any{
				{
					"id": 101, "first_name": "Jane", "last_name": "Doe",
					"primary_email":            "jane@acme.com",
					"current_organization_ids": []int{7},
				},
			},
		})
	})

	res, err := callTool(t, a, "search_persons", map[string]any{"term": "jane"})
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	e := res.Entities[0]
	assert.Equal(t, "101", e.ID)
	assert.Equal(t, "Jane Doe", e.Name)
	assert.Equal(t, graph.TypePerson, e.Type)
	assert.Equal(t, Name, e.Provider)
	assert.Equal(t, "jane@acme.com", e.Attributes["email"])

	require.Len(t, res.Relationships, 1)
	rel := res.Relationships[0]
	assert.Equal(t, "101", rel.SourceID)
	assert.Equal(t, "7", rel.TargetID)
	assert.Equal(t, "works_at", rel.Type)
}

func TestSearchPersonsPagination(t *testing.T) {
	pages := 0
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		token := r.URL.Query().Get("page_token")
		switch token {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"persons":         []map[string]any{{"id": 1, "first_name": "A", "last_name": "One"}},
				"next_page_token": "t2",
			})
		case "t2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"persons": []map[string]any{{"id": 2, "first_name": "B", "last_name": "Two"}},
			})
		default:
			t.Errorf("unexpected page token %q", token)
		}
	})

	res, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Len(t, res.Entities, 2)
	assert.False(t, res.Truncated)
}

func TestSearchPersonsPageCeiling(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		// Always reports another page.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"persons":         []map[string]any{{"id": 1, "first_name": "A", "last_name": "One"}},
			"next_page_token": "more",
		})
	})

	res, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
	require.NoError(t, err)
	assert.Len(t, res.Entities, 3, "one entity per page up to the ceiling")
	assert.True(t, res.Truncated)
}

func TestGetOrganization(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/7", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "name": "Acme Corp", "domain": "acme.com",
			"person_ids": []int{101, 102},
		})
	})

	res, err := callTool(t, a, "get_organization", map[string]any{"organization_id": 7})
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	assert.Equal(t, graph.TypeCompany, res.Entities[0].Type)
	assert.Equal(t, "acme.com", res.Entities[0].Attributes["domain"])
	assert.Len(t, res.Relationships, 2)
}

func TestGetRelationshipStrengths(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/relationship-strengths", r.URL.Path)
		assert.Equal(t, "55", r.URL.Query().Get("external_id"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"internal_id": 9, "external_id": 55, "strength": 0.72},
		})
	})

	res, err := callTool(t, a, "get_relationship_strengths", map[string]any{"external_id": 55})
	require.NoError(t, err)

	require.Len(t, res.Relationships, 1)
	rel := res.Relationships[0]
	assert.Equal(t, "knows", rel.Type)
	assert.InDelta(t, 0.72, rel.Confidence, 1e-9)
}

func TestGetInteractionsRequiresSubject(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := callTool(t, a, "get_interactions", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, toolerr.ErrCodeInvalidParameters, toolerr.CodeOf(err))
}

func TestGetInteractionsPairsParticipants(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"interactions": []map[string]any{
				{"id": 1, "type": "meeting", "date": "2026-05-01", "person_ids": []int{1, 2, 3}},
			},
		})
	})

	res, err := callTool(t, a, "get_interactions", map[string]any{"person_id": 1})
	require.NoError(t, err)
	assert.Len(t, res.Relationships, 3, "three participants yield three pairs")
	assert.Equal(t, "meeting", res.Relationships[0].Type)
}

func TestErrorClassification(t *testing.T) {
	t.Run("rate limited carries retry-after", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
		require.Error(t, err)
		assert.Equal(t, toolerr.ErrCodeRateLimited, toolerr.CodeOf(err))
		assert.Equal(t, int64(7), int64(toolerr.RetryAfterOf(err).Seconds()))
		assert.True(t, toolerr.IsTransient(err))
	})

	t.Run("auth failure is permanent", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
		require.Error(t, err)
		assert.Equal(t, toolerr.ErrCodeAuthFailed, toolerr.CodeOf(err))
		assert.True(t, toolerr.IsPermanent(err))
	})

	t.Run("server error is transient", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
		require.Error(t, err)
		assert.True(t, toolerr.IsTransient(err))
	})

	t.Run("malformed body is semantic", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		})

		_, err := callTool(t, a, "search_persons", map[string]any{"term": "x"})
		require.Error(t, err)
		assert.Equal(t, toolerr.ErrCodeNormalization, toolerr.CodeOf(err))
		assert.True(t, toolerr.IsSemantic(err))
	})
}
