package graph

// ResolvedEntity is one identity merged from one or more raw provider
// entities. It always retains links back to every constituent for
// attribution.
type ResolvedEntity struct {
	// ID is a deterministic, content-addressable identifier derived from
	// the constituent set. Stable for a given snapshot.
	ID string `json:"id"`

	// Name is the canonical display name chosen from the constituents.
	Name string `json:"name"`

	// Type classifies the resolved entity.
	Type EntityType `json:"type"`

	// Confidence is 1.0 for exact-normalized-name merges and the minimum
	// pairwise name similarity when fuzzy matching contributed.
	Confidence float64 `json:"confidence"`

	// Providers lists the distinct providers that contributed, sorted.
	Providers []string `json:"providers"`

	// Constituents are the raw entities merged under this identity,
	// sorted by provider-scoped key.
	Constituents []Entity `json:"constituents"`

	// Attributes holds the union of constituent attributes, namespaced
	// by provider ("affinity.title", "harmonic.funding_stage"). When
	// providers disagree, both values survive with attribution.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ResolvedRelationship is a deduplicated edge between resolved entities.
type ResolvedRelationship struct {
	// SourceID and TargetID reference ResolvedEntity ids in the same
	// snapshot.
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`

	// Type describes the relationship.
	Type string `json:"type"`

	// Confidence is the maximum confidence seen across duplicates.
	Confidence float64 `json:"confidence"`

	// Providers lists the distinct providers that reported this edge, sorted.
	Providers []string `json:"providers"`

	// Attributes holds the union of edge attributes, namespaced by provider.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Snapshot is the aggregator's output: the resolved entity and
// relationship sets at a point in time.
type Snapshot struct {
	Entities      []ResolvedEntity       `json:"entities"`
	Relationships []ResolvedRelationship `json:"relationships"`

	// DroppedRelationships counts raw edges whose endpoints could not be
	// resolved against any merged entity.
	DroppedRelationships int `json:"dropped_relationships,omitempty"`
}

// IsEmpty reports whether the snapshot holds no resolved data at all.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Entities) == 0 && len(s.Relationships) == 0
}

// EntityByID returns the resolved entity with the given id, if present.
func (s *Snapshot) EntityByID(id string) (*ResolvedEntity, bool) {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// EntitiesNamed returns the resolved entities whose normalized name
// matches the normalized form of name.
func (s *Snapshot) EntitiesNamed(name string) []ResolvedEntity {
	norm := NormalizeName(name)
	var out []ResolvedEntity
	for _, e := range s.Entities {
		if NormalizeName(e.Name) == norm {
			out = append(out, e)
		}
	}
	return out
}
