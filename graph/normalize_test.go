package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme"},
		{"Acme corp.", "acme"},
		{"ACME, Inc.", "acme"},
		{"Acme Corporation", "acme"},
		{"  Sequoia   Capital ", "sequoia capital"},
		{"O'Brien & Partners LLC", "obrien partners"},
		{"Jane Doe", "jane doe"},
		{"Co", "co"}, // single token is never stripped
		{"Tiger Global Holdings", "tiger global"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("jane doe", "jane doe"))
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.Equal(t, 0.0, NameSimilarity("acme", "globex"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		sim := NameSimilarity("sequoia capital", "sequoia capital china")
		assert.InDelta(t, 2.0/3.0, sim, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, NameSimilarity("", "acme"))
	})
}

func TestResolvedIDDeterministic(t *testing.T) {
	keys := []string{"affinity/a1", "harmonic/h9"}
	id1 := resolvedID(TypeCompany, keys)
	id2 := resolvedID(TypeCompany, keys)
	assert.Equal(t, id1, id2)
	assert.Contains(t, id1, "company:")

	// Different constituents produce different ids.
	other := resolvedID(TypeCompany, []string{"affinity/a1"})
	assert.NotEqual(t, id1, other)

	// Same keys under a different type produce different ids.
	assert.NotEqual(t, id1, resolvedID(TypePerson, keys))
}
