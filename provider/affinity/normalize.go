package affinity

import (
	"strconv"
	"strings"

	"github.com/springbank-ai/netagent/graph"
)

// Wire types mirror the slice of the Affinity v1 API this adapter
// consumes. Fields the agent never uses are left undeclared; the
// decoder drops them.

type person struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	PrimaryEmail   string  `json:"primary_email"`
	Emails         []string `json:"emails"`
	OrganizationIDs []int64 `json:"organization_ids"`

	// CurrentOrganizationIDs is populated when the request sets
	// with_current_organizations.
	CurrentOrganizationIDs []int64 `json:"current_organization_ids"`
}

type personsPage struct {
	Persons       []person `json:"persons"`
	NextPageToken string   `json:"next_page_token"`
}

type organization struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Domain    string  `json:"domain"`
	PersonIDs []int64 `json:"person_ids"`
}

type organizationsPage struct {
	Organizations []organization `json:"organizations"`
	NextPageToken string         `json:"next_page_token"`
}

type relationshipStrength struct {
	InternalID int64   `json:"internal_id"`
	ExternalID int64   `json:"external_id"`
	Strength   float64 `json:"strength"`
}

type interaction struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Date      string  `json:"date"`
	PersonIDs []int64 `json:"person_ids"`
}

type interactionsPage struct {
	Interactions  []interaction `json:"interactions"`
	NextPageToken string        `json:"next_page_token"`
}

func personID(id int64) string { return strconv.FormatInt(id, 10) }

func (p person) normalize() ([]graph.Entity, []graph.Relationship) {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	e := graph.NewEntity(personID(p.ID), name, graph.TypePerson, Name)
	if p.PrimaryEmail != "" {
		e.WithAttribute("email", p.PrimaryEmail)
	}

	orgIDs := p.CurrentOrganizationIDs
	if len(orgIDs) == 0 {
		orgIDs = p.OrganizationIDs
	}

	// Affiliation targets may not be in the result set yet. The
	// aggregator drops edges whose endpoints never materialize.
	var rels []graph.Relationship
	for _, orgID := range orgIDs {
		rels = append(rels, *graph.NewRelationship(
			personID(p.ID), personID(orgID), "works_at", Name))
	}
	return []graph.Entity{*e}, rels
}

func (o organization) normalize() ([]graph.Entity, []graph.Relationship) {
	e := graph.NewEntity(personID(o.ID), o.Name, graph.TypeCompany, Name)
	if o.Domain != "" {
		e.WithAttribute("domain", o.Domain)
	}

	var rels []graph.Relationship
	for _, pid := range o.PersonIDs {
		rels = append(rels, *graph.NewRelationship(
			personID(pid), personID(o.ID), "works_at", Name))
	}
	return []graph.Entity{*e}, rels
}

func (s relationshipStrength) normalize() *graph.Relationship {
	if s.InternalID == 0 || s.ExternalID == 0 {
		return nil
	}
	strength := s.Strength
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return graph.NewRelationship(
		personID(s.InternalID), personID(s.ExternalID), "knows", Name).
		WithConfidence(strength)
}

func (in interaction) normalize() []graph.Relationship {
	relType := "interacted_with"
	if in.Type != "" {
		relType = in.Type
	}

	// An interaction connects every participant pair.
	var rels []graph.Relationship
	for i := 0; i < len(in.PersonIDs); i++ {
		for j := i + 1; j < len(in.PersonIDs); j++ {
			rel := graph.NewRelationship(
				personID(in.PersonIDs[i]), personID(in.PersonIDs[j]), relType, Name)
			if in.Date != "" {
				rel.WithAttribute("date", in.Date)
			}
			rels = append(rels, *rel)
		}
	}
	return rels
}
