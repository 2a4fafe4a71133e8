package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeFromAffinity() Entity {
	return *NewEntity("a1", "Acme Corp", TypeCompany, "affinity").
		WithAttribute("relationship_strength", 0.9)
}

func acmeFromHarmonic() Entity {
	return *NewEntity("h9", "Acme corp.", TypeCompany, "harmonic").
		WithAttribute("funding_stage", "series_b")
}

func janeFromAffinity() Entity {
	return *NewEntity("a2", "Jane Doe", TypePerson, "affinity").
		WithAttribute("title", "Partner")
}

func TestMergeCrossProviderCompany(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]Entity{acmeFromAffinity()}, nil)
	agg.Merge([]Entity{acmeFromHarmonic()}, nil)

	snap := agg.Snapshot()
	require.Len(t, snap.Entities, 1)

	acme := snap.Entities[0]
	assert.Equal(t, TypeCompany, acme.Type)
	assert.Len(t, acme.Constituents, 2)
	assert.Equal(t, []string{"affinity", "harmonic"}, acme.Providers)
	assert.Equal(t, 1.0, acme.Confidence) // identical normalized names

	// Both providers' attributes survive with attribution.
	assert.Equal(t, 0.9, acme.Attributes["affinity.relationship_strength"])
	assert.Equal(t, "series_b", acme.Attributes["harmonic.funding_stage"])
}

func TestMergeRespectsEntityType(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]Entity{
		*NewEntity("a1", "Jordan Smith", TypePerson, "affinity"),
		*NewEntity("h1", "Jordan Smith", TypeCompany, "harmonic"),
	}, nil)

	snap := agg.Snapshot()
	assert.Len(t, snap.Entities, 2)
}

func TestMergeIdempotence(t *testing.T) {
	entities := []Entity{acmeFromAffinity(), acmeFromHarmonic()}
	rels := []Relationship{
		*NewRelationship("a2", "a1", "works_at", "affinity"),
	}

	once := NewAggregator()
	once.Merge(append(entities, janeFromAffinity()), rels)
	twice := NewAggregator()
	twice.Merge(append(entities, janeFromAffinity()), rels)
	twice.Merge(append(entities, janeFromAffinity()), rels)

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestMergeCommutativity(t *testing.T) {
	batchA := []Entity{acmeFromAffinity(), janeFromAffinity()}
	batchB := []Entity{acmeFromHarmonic()}
	relsA := []Relationship{*NewRelationship("a2", "a1", "works_at", "affinity")}
	relsB := []Relationship{*NewRelationship("h9", "h9", "self", "harmonic")}

	ab := NewAggregator()
	ab.Merge(batchA, relsA)
	ab.Merge(batchB, relsB)

	ba := NewAggregator()
	ba.Merge(batchB, relsB)
	ba.Merge(batchA, relsA)

	assert.Equal(t, ab.Snapshot(), ba.Snapshot())
}

func TestFuzzyMergeLowersConfidence(t *testing.T) {
	agg := NewAggregator().WithThreshold(0.6)
	agg.Merge([]Entity{
		*NewEntity("a1", "Sequoia Capital", TypeCompany, "affinity"),
		*NewEntity("h1", "Sequoia Capital China", TypeCompany, "harmonic"),
	}, nil)

	snap := agg.Snapshot()
	require.Len(t, snap.Entities, 1)
	assert.Less(t, snap.Entities[0].Confidence, 1.0)
	assert.Len(t, snap.Entities[0].Constituents, 2)
}

func TestBelowThresholdStaysSeparate(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]Entity{
		*NewEntity("a1", "Sequoia Capital", TypeCompany, "affinity"),
		*NewEntity("h1", "Benchmark Capital", TypeCompany, "harmonic"),
	}, nil)

	assert.Len(t, agg.Snapshot().Entities, 2)
}

func TestTransitiveMerge(t *testing.T) {
	// a-b fuzzy, b-c exact: the closure must put all three in one group.
	agg := NewAggregator().WithThreshold(0.6)
	agg.Merge([]Entity{
		*NewEntity("a1", "Tiger Global Management", TypeCompany, "affinity"),
		*NewEntity("h1", "Tiger Global", TypeCompany, "harmonic"),
		*NewEntity("h2", "Tiger Global Holdings", TypeCompany, "harmonic"),
	}, nil)

	snap := agg.Snapshot()
	require.Len(t, snap.Entities, 1)
	assert.Len(t, snap.Entities[0].Constituents, 3)
}

func TestRelationshipRemapAndDedup(t *testing.T) {
	agg := NewAggregator()
	agg.Merge(
		[]Entity{acmeFromAffinity(), acmeFromHarmonic(), janeFromAffinity(),
			*NewEntity("h2", "Jane Doe", TypePerson, "harmonic")},
		[]Relationship{
			*NewRelationship("a2", "a1", "works_at", "affinity").WithConfidence(0.7),
			*NewRelationship("h2", "h9", "works_at", "harmonic").WithConfidence(0.95),
		},
	)

	snap := agg.Snapshot()
	require.Len(t, snap.Entities, 2) // resolved Acme + resolved Jane
	require.Len(t, snap.Relationships, 1, "same edge from both providers must deduplicate")

	edge := snap.Relationships[0]
	assert.Equal(t, "works_at", edge.Type)
	assert.Equal(t, 0.95, edge.Confidence, "conflicting confidences keep the maximum")
	assert.Equal(t, []string{"affinity", "harmonic"}, edge.Providers)

	jane := snap.EntitiesNamed("Jane Doe")
	require.Len(t, jane, 1)
	assert.Equal(t, jane[0].ID, edge.SourceID)
}

func TestDanglingRelationshipDropped(t *testing.T) {
	agg := NewAggregator()
	agg.Merge(
		[]Entity{janeFromAffinity()},
		[]Relationship{*NewRelationship("a2", "missing", "introduced_to", "affinity")},
	)

	snap := agg.Snapshot()
	assert.Empty(t, snap.Relationships)
	assert.Equal(t, 1, snap.DroppedRelationships)
}

func TestCanonicalNamePicksMostFrequent(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]Entity{
		*NewEntity("a1", "Acme Corp", TypeCompany, "affinity"),
		*NewEntity("h1", "Acme Corp", TypeCompany, "harmonic"),
		*NewEntity("h2", "ACME, Inc.", TypeCompany, "harmonic"),
	}, nil)

	snap := agg.Snapshot()
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "Acme Corp", snap.Entities[0].Name)
}

func TestInvalidRecordsSkipped(t *testing.T) {
	agg := NewAggregator()
	agg.Merge(
		[]Entity{{Name: "no id", Type: TypeCompany, Provider: "affinity"}},
		[]Relationship{{SourceID: "a", Type: "works_at", Provider: "affinity"}},
	)

	assert.Equal(t, 0, agg.EntityCount())
	assert.True(t, agg.Snapshot().IsEmpty())
}

func TestSnapshotIsEmpty(t *testing.T) {
	assert.True(t, NewAggregator().Snapshot().IsEmpty())
}
