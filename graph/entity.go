// Package graph holds the session-scoped data model for the relationship
// network: raw provider entities and relationships, and the aggregator
// that folds results from several providers into a deduplicated,
// provider-attributed snapshot.
package graph

import (
	"errors"
	"fmt"
)

// EntityType classifies a network node.
type EntityType string

const (
	// TypePerson is an individual (investor, founder, executive).
	TypePerson EntityType = "person"

	// TypeCompany is an organization (portfolio company, fund, firm).
	TypeCompany EntityType = "company"
)

// IsValid reports whether the entity type is one of the known values.
func (t EntityType) IsValid() bool {
	return t == TypePerson || t == TypeCompany
}

// Entity is a person or company exactly as one provider returned it.
// Entities are created fresh per query from adapter responses and are
// never persisted across sessions.
type Entity struct {
	// ID is the provider-scoped, opaque identifier.
	ID string `json:"id"`

	// Name is the display name the provider returned.
	Name string `json:"name"`

	// Type classifies the entity as a person or a company.
	Type EntityType `json:"type"`

	// Provider names the adapter that produced this entity.
	Provider string `json:"provider"`

	// Attributes holds provider-specific scalar fields
	// (funding stage, title, domain, ...).
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewEntity creates an Entity with an initialized attribute map.
func NewEntity(id, name string, typ EntityType, provider string) *Entity {
	return &Entity{
		ID:         id,
		Name:       name,
		Type:       typ,
		Provider:   provider,
		Attributes: make(map[string]any),
	}
}

// WithAttribute sets a single attribute and returns the entity for chaining.
func (e *Entity) WithAttribute(key string, value any) *Entity {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = value
	return e
}

// Key returns the provider-scoped identity of the raw entity. Two records
// with the same key are the same upstream object, re-fetched.
func (e *Entity) Key() string {
	return e.Provider + "/" + e.ID
}

// Validate checks that the entity has the fields every downstream
// component relies on.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return errors.New("entity id is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid entity type %q", e.Type)
	}
	if e.Provider == "" {
		return errors.New("entity provider is required")
	}
	return nil
}
