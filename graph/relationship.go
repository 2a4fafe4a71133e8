package graph

import "fmt"

// Relationship is a directed edge between two raw entities as one
// provider reported it (e.g., "invested_in", "introduced_to", "works_at").
// Endpoint ids are provider-scoped and are remapped to resolved entities
// when the aggregator snapshots.
type Relationship struct {
	// SourceID is the provider-scoped id of the source entity.
	SourceID string `json:"source_id"`

	// TargetID is the provider-scoped id of the target entity.
	TargetID string `json:"target_id"`

	// Type describes the relationship (e.g., "invested_in", "works_at").
	Type string `json:"type"`

	// Confidence reflects provider reliability and recency, 0.0 to 1.0.
	Confidence float64 `json:"confidence"`

	// Provider names the adapter that produced this relationship.
	Provider string `json:"provider"`

	// Attributes holds provider-specific edge fields
	// (round name, amount, interaction date, ...).
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewRelationship creates a Relationship with full confidence.
func NewRelationship(sourceID, targetID, relType, provider string) *Relationship {
	return &Relationship{
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       relType,
		Confidence: 1.0,
		Provider:   provider,
		Attributes: make(map[string]any),
	}
}

// WithConfidence sets the confidence and returns the relationship for chaining.
func (r *Relationship) WithConfidence(c float64) *Relationship {
	r.Confidence = c
	return r
}

// WithAttribute sets a single attribute and returns the relationship for chaining.
func (r *Relationship) WithAttribute(key string, value any) *Relationship {
	if r.Attributes == nil {
		r.Attributes = make(map[string]any)
	}
	r.Attributes[key] = value
	return r
}

// Validate checks that the relationship has all required fields.
func (r *Relationship) Validate() error {
	if r.SourceID == "" {
		return fmt.Errorf("relationship source id cannot be empty")
	}
	if r.TargetID == "" {
		return fmt.Errorf("relationship target id cannot be empty")
	}
	if r.Type == "" {
		return fmt.Errorf("relationship type cannot be empty")
	}
	if r.Provider == "" {
		return fmt.Errorf("relationship provider cannot be empty")
	}
	return nil
}
