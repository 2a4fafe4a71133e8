package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture(t *testing.T) *Snapshot {
	t.Helper()

	agg := NewAggregator()
	agg.Merge([]Entity{
		*NewEntity("a1", "Acme Corp", TypeCompany, "affinity").WithAttribute("stage", "series_b"),
		*NewEntity("h9", "Acme corp.", TypeCompany, "harmonic"),
		*NewEntity("a2", "Jane Doe", TypePerson, "affinity").WithAttribute("title", "Partner"),
		*NewEntity("h3", "Globex", TypeCompany, "harmonic"),
	}, nil)
	return agg.Snapshot()
}

func TestFilterByType(t *testing.T) {
	snap := filterFixture(t)

	companies, err := snap.Filter(`entity.type == "company"`)
	require.NoError(t, err)
	assert.Len(t, companies, 2)

	people, err := snap.Filter(`entity.type == "person"`)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Jane Doe", people[0].Name)
}

func TestFilterByProvider(t *testing.T) {
	snap := filterFixture(t)

	crossProvider, err := snap.Filter(`"affinity" in entity.providers && "harmonic" in entity.providers`)
	require.NoError(t, err)
	require.Len(t, crossProvider, 1)
	assert.Equal(t, "Acme Corp", crossProvider[0].Name)
}

func TestFilterByAttribute(t *testing.T) {
	snap := filterFixture(t)

	seriesB, err := snap.Filter(`"affinity.stage" in entity.attributes && entity.attributes["affinity.stage"] == "series_b"`)
	require.NoError(t, err)
	require.Len(t, seriesB, 1)
	assert.Equal(t, "Acme Corp", seriesB[0].Name)
}

func TestFilterByConfidence(t *testing.T) {
	snap := filterFixture(t)

	confident, err := snap.Filter(`entity.confidence >= 1.0`)
	require.NoError(t, err)
	assert.Len(t, confident, 3)
}

func TestFilterErrors(t *testing.T) {
	snap := filterFixture(t)

	t.Run("syntax error", func(t *testing.T) {
		_, err := snap.Filter(`entity.type ==`)
		assert.Error(t, err)
	})

	t.Run("non-boolean result", func(t *testing.T) {
		_, err := snap.Filter(`entity.name`)
		assert.Error(t, err)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := snap.Filter(`record.type == "company"`)
		assert.Error(t, err)
	})
}
