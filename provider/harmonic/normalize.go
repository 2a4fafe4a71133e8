package harmonic

import (
	"github.com/springbank-ai/netagent/graph"
)

// Wire types mirror the slice of the Harmonic API this adapter
// consumes.

type company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Stage       string `json:"stage"`
	Headcount   int    `json:"headcount"`
	Description string `json:"description"`
}

type companiesPage struct {
	Results []company `json:"results"`
	Count   int       `json:"count"`
}

type harmonicPerson struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Title     string `json:"title"`
	CompanyID string `json:"company_id"`
}

type peoplePage struct {
	Results []harmonicPerson `json:"results"`
	Count   int              `json:"count"`
}

type investor struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Type is "firm" or "person". Firms dominate, so it is the default.
	Type string `json:"type"`
}

type investorsPage struct {
	Results []investor `json:"results"`
	Count   int        `json:"count"`
}

type connection struct {
	PersonID string  `json:"person_id"`
	FullName string  `json:"full_name"`
	Title    string  `json:"title"`
	Strength float64 `json:"strength"`
}

type networkPage struct {
	Connections []connection `json:"connections"`
	Count       int          `json:"count"`
}

type fundingRound struct {
	ID        string     `json:"id"`
	RoundType string     `json:"round_type"`
	AmountUSD float64    `json:"amount_usd"`
	Date      string     `json:"date"`
	Investors []investor `json:"investors"`
}

type fundingPage struct {
	FundingRounds []fundingRound `json:"funding_rounds"`
}

func (c company) normalize() graph.Entity {
	e := graph.NewEntity(c.ID, c.Name, graph.TypeCompany, Name)
	if c.Domain != "" {
		e.WithAttribute("domain", c.Domain)
	}
	if c.Stage != "" {
		e.WithAttribute("stage", c.Stage)
	}
	if c.Headcount > 0 {
		e.WithAttribute("headcount", c.Headcount)
	}
	return *e
}

func (p harmonicPerson) normalize() ([]graph.Entity, []graph.Relationship) {
	return p.normalizeAt(p.CompanyID)
}

// normalizeAt attaches the person to companyID when known. The company
// entity itself usually arrives from another step; dangling edges are
// dropped at snapshot time.
func (p harmonicPerson) normalizeAt(companyID string) ([]graph.Entity, []graph.Relationship) {
	e := graph.NewEntity(p.ID, p.FullName, graph.TypePerson, Name)
	if p.Title != "" {
		e.WithAttribute("title", p.Title)
	}

	var rels []graph.Relationship
	if companyID != "" {
		rels = append(rels, *graph.NewRelationship(p.ID, companyID, "works_at", Name))
	}
	return []graph.Entity{*e}, rels
}

func (i investor) normalize() graph.Entity {
	typ := graph.TypeCompany
	if i.Type == "person" {
		typ = graph.TypePerson
	}
	e := graph.NewEntity(i.ID, i.Name, typ, Name)
	e.WithAttribute("investor", true)
	return *e
}

func (c connection) normalize(ofPersonID string) (graph.Entity, graph.Relationship) {
	e := graph.NewEntity(c.PersonID, c.FullName, graph.TypePerson, Name)
	if c.Title != "" {
		e.WithAttribute("title", c.Title)
	}

	strength := c.Strength
	if strength <= 0 || strength > 1 {
		strength = 1
	}
	rel := graph.NewRelationship(ofPersonID, c.PersonID, "knows", Name).
		WithConfidence(strength)
	return *e, *rel
}

func (r fundingRound) normalize(companyID string) ([]graph.Entity, []graph.Relationship) {
	var ents []graph.Entity
	var rels []graph.Relationship
	for _, inv := range r.Investors {
		ents = append(ents, inv.normalize())

		rel := graph.NewRelationship(inv.ID, companyID, "invested_in", Name)
		if r.RoundType != "" {
			rel.WithAttribute("round", r.RoundType)
		}
		if r.AmountUSD > 0 {
			rel.WithAttribute("amount_usd", r.AmountUSD)
		}
		if r.Date != "" {
			rel.WithAttribute("date", r.Date)
		}
		rels = append(rels, *rel)
	}
	return ents, rels
}

func investedIn(investorID, companyID string) *graph.Relationship {
	return graph.NewRelationship(investorID, companyID, "invested_in", Name)
}
